// Package sampledb accumulates radiance samples per pixel, so renders can be
// split across workers, checkpointed, and resumed.
package sampledb

import (
	"bufio"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"row-major.net/harpoon/vmath/vec3"
)

// dataLayoutVersion identifies the body encoding that follows the header.
const dataLayoutVersion = 1

// SampleDB is a row-major grid of pixels.  Pixel (0, 0) is the top left
// corner of the image.
type SampleDB struct {
	RowSize, ColSize int

	// Three channel sums per pixel.
	Sums []float64

	// Samples recorded per pixel.
	Counts []uint32
}

type Sample struct {
	Sum   vec3.T
	Count uint32
}

func New(rowSize, colSize int) *SampleDB {
	s := &SampleDB{}
	s.Resize(rowSize, colSize)
	return s
}

// Resize discards all samples and reshapes the grid.
func (s *SampleDB) Resize(rowSize, colSize int) {
	s.RowSize = rowSize
	s.ColSize = colSize

	s.Sums = make([]float64, 3*rowSize*colSize)
	s.Counts = make([]uint32, rowSize*colSize)
}

func (s *SampleDB) RecordSample(r, c int, rgb vec3.T) {
	idx := r*s.ColSize + c
	s.Sums[3*idx+0] += rgb[0]
	s.Sums[3*idx+1] += rgb[1]
	s.Sums[3*idx+2] += rgb[2]
	s.Counts[idx]++
}

func (s *SampleDB) ReadSample(r, c int) Sample {
	idx := r*s.ColSize + c
	return Sample{
		Sum:   vec3.T{s.Sums[3*idx+0], s.Sums[3*idx+1], s.Sums[3*idx+2]},
		Count: s.Counts[idx],
	}
}

// TotalSamples counts every sample recorded in the grid.
func (s *SampleDB) TotalSamples() uint64 {
	var total uint64
	for _, c := range s.Counts {
		total += uint64(c)
	}
	return total
}

// Cut copies out the pixels in rows [rowSrc, rowLim) and columns [colSrc,
// colLim).
func (s *SampleDB) Cut(rowSrc, rowLim, colSrc, colLim int) *SampleDB {
	dst := New(rowLim-rowSrc, colLim-colSrc)

	dstIndex := 0
	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := r*s.ColSize + c

			copy(dst.Sums[3*dstIndex:3*dstIndex+3], s.Sums[3*srcIndex:3*srcIndex+3])
			dst.Counts[dstIndex] = s.Counts[srcIndex]

			dstIndex++
		}
	}

	return dst
}

// Paste overwrites the pixels under src, placed with its top left corner at
// (rowSrc, colSrc).
func (s *SampleDB) Paste(src *SampleDB, rowSrc, colSrc int) {
	for r := 0; r < src.RowSize; r++ {
		for c := 0; c < src.ColSize; c++ {
			srcIndex := r*src.ColSize + c
			dstIndex := (r+rowSrc)*s.ColSize + (c + colSrc)

			copy(s.Sums[3*dstIndex:3*dstIndex+3], src.Sums[3*srcIndex:3*srcIndex+3])
			s.Counts[dstIndex] = src.Counts[srcIndex]
		}
	}
}

// Image is a developed, display-ready picture.  Channels are in [0, 1] and
// already gamma corrected.  Row 0 is the top.
type Image struct {
	Width, Height int
	Pix           []vec3.T
}

func (im *Image) At(row, col int) vec3.T {
	return im.Pix[row*im.Width+col]
}

// ToRGBA quantizes the image to 8 bits per channel.
func (im *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for r := 0; r < im.Height; r++ {
		for c := 0; c < im.Width; c++ {
			p := im.At(r, c)
			out.SetRGBA(c, r, color.RGBA{
				R: quantize(p[0]),
				G: quantize(p[1]),
				B: quantize(p[2]),
				A: 0xff,
			})
		}
	}
	return out
}

func quantize(x float64) uint8 {
	return uint8(math.Min(255, math.Floor(256*x)))
}

// developChannel averages, clamps to [0, 1], and applies gamma 2.
func developChannel(sum float64, count uint32) float64 {
	if count == 0 {
		return 0
	}
	avg := sum / float64(count)
	if math.IsNaN(avg) {
		return 0
	}
	return math.Sqrt(math.Max(0, math.Min(1, avg)))
}

// Develop turns the accumulated samples into an image.  Pixels without
// samples are black.
func (s *SampleDB) Develop() *Image {
	im := &Image{
		Width:  s.ColSize,
		Height: s.RowSize,
		Pix:    make([]vec3.T, s.RowSize*s.ColSize),
	}
	for i := range im.Pix {
		for ch := 0; ch < 3; ch++ {
			im.Pix[i][ch] = developChannel(s.Sums[3*i+ch], s.Counts[i])
		}
	}
	return im
}

// ReadSampleDB decodes a sample DB written by WriteSampleDB.
func ReadSampleDB(in io.Reader) (*SampleDB, error) {
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLength > 1<<20 {
		return nil, fmt.Errorf("header length %d is implausibly large", headerLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr := &structpb.Struct{}
	if err := proto.Unmarshal(headerBytes, hdr); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	fields := hdr.GetFields()
	if v := fields["dataLayoutVersion"].GetNumberValue(); v != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", v)
	}

	rowSize := fields["rowSize"].GetNumberValue()
	colSize := fields["colSize"].GetNumberValue()
	if rowSize < 0 || colSize < 0 || rowSize*colSize > 1<<30 {
		return nil, fmt.Errorf("bad sample db dimensions %vx%v", rowSize, colSize)
	}

	s := New(int(rowSize), int(colSize))

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, s.Sums); err != nil {
		return nil, fmt.Errorf("while reading sample sums: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, s.Counts); err != nil {
		return nil, fmt.Errorf("while reading sample counts: %w", err)
	}

	return s, nil
}

func ReadSampleDBFromFile(name string) (*SampleDB, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return ReadSampleDB(bufio.NewReader(f))
}

// WriteSampleDB encodes s as an 8 byte little endian header length, a
// protobuf Struct header, and a zlib stream holding the sums then the counts.
func WriteSampleDB(s *SampleDB, w io.Writer) error {
	hdr, err := structpb.NewStruct(map[string]interface{}{
		"rowSize":           s.RowSize,
		"colSize":           s.ColSize,
		"dataLayoutVersion": dataLayoutVersion,
	})
	if err != nil {
		return fmt.Errorf("while building header: %w", err)
	}

	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, s.Sums); err != nil {
		return fmt.Errorf("while writing sample sums: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, s.Counts); err != nil {
		return fmt.Errorf("while writing sample counts: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}

// WriteSampleDBToFile writes s to name through a temporary file, so an
// interrupted write never clobbers an earlier checkpoint.
func WriteSampleDBToFile(s *SampleDB, name string) error {
	tmpName := name + ".tmp"
	f, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := WriteSampleDB(s, bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("while flushing file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}

	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("while renaming %q into place: %w", tmpName, err)
	}
	return nil
}
