// Package output writes finished images and sample DBs to local files or to
// Google Cloud Storage.
package output

import (
	"bufio"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"row-major.net/harpoon/sampledb"
)

// Location is either a GCS object (Bucket and Object set) or a local Path.
type Location struct {
	Bucket string
	Object string

	Path string
}

// ParseLocation accepts "gs://bucket/object" or a local path.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("empty output location")
	}

	if !strings.HasPrefix(s, "gs://") {
		return Location{Path: s}, nil
	}

	rest := strings.TrimPrefix(s, "gs://")
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return Location{}, fmt.Errorf("GCS location %q must look like gs://bucket/object", s)
	}
	return Location{Bucket: rest[:slash], Object: rest[slash+1:]}, nil
}

func (l Location) IsGCS() bool {
	return l.Bucket != ""
}

func (l Location) String() string {
	if l.IsGCS() {
		return "gs://" + l.Bucket + "/" + l.Object
	}
	return l.Path
}

// Client opens Locations.  gcs may be nil if no GCS location will be used.
type Client struct {
	gcs *storage.Client
}

func NewClient(gcs *storage.Client) *Client {
	return &Client{gcs: gcs}
}

// localFile is written under a temporary name and renamed into place when
// closed, so readers never see a partial file.
type localFile struct {
	*bufio.Writer

	f    *os.File
	path string
}

func (l *localFile) Close() error {
	if err := l.Writer.Flush(); err != nil {
		l.f.Close()
		return fmt.Errorf("while flushing %q: %w", l.f.Name(), err)
	}
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("while closing %q: %w", l.f.Name(), err)
	}
	if err := os.Rename(l.f.Name(), l.path); err != nil {
		return fmt.Errorf("while renaming into %q: %w", l.path, err)
	}
	return nil
}

// Writer opens loc for writing.  Nothing is visible at loc until the writer
// is closed without error.
func (c *Client) Writer(ctx context.Context, loc Location) (io.WriteCloser, error) {
	if !loc.IsGCS() {
		f, err := os.Create(loc.Path + ".tmp")
		if err != nil {
			return nil, fmt.Errorf("while creating file: %w", err)
		}
		return &localFile{Writer: bufio.NewWriter(f), f: f, path: loc.Path}, nil
	}

	if c.gcs == nil {
		return nil, fmt.Errorf("no GCS client configured for %v", loc)
	}

	w := c.gcs.Bucket(loc.Bucket).Object(loc.Object).NewWriter(ctx)

	// Disable chunking.  This will expose more transient server errors to
	// calling code, but significantly reduces memory usage.
	w.ChunkSize = 0

	return w, nil
}

// Reader opens loc for reading.
func (c *Client) Reader(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if !loc.IsGCS() {
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("while opening file: %w", err)
		}
		return f, nil
	}

	if c.gcs == nil {
		return nil, fmt.Errorf("no GCS client configured for %v", loc)
	}

	r, err := c.gcs.Bucket(loc.Bucket).Object(loc.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("while opening reader for object: %w", err)
	}
	return r, nil
}

func (c *Client) write(ctx context.Context, spanName string, loc Location, encode func(io.Writer) error) error {
	tracer := otel.Tracer("row-major.net/harpoon/output")
	var span trace.Span
	ctx, span = tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(attribute.String("location", loc.String()))

	w, err := c.Writer(ctx, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := encode(w); err != nil {
		// Abandon the write.  For GCS, closing would commit a partial object.
		if lf, ok := w.(*localFile); ok {
			lf.f.Close()
			os.Remove(lf.f.Name())
		} else if ow, ok := w.(*storage.Writer); ok {
			ow.CloseWithError(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := w.Close(); err != nil {
		err := fmt.Errorf("while closing writer for %v: %w", loc, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// WritePNG encodes img as an 8 bit PNG at loc.
func (c *Client) WritePNG(ctx context.Context, loc Location, img *sampledb.Image) error {
	return c.write(ctx, "Client.WritePNG", loc, func(w io.Writer) error {
		if err := png.Encode(w, img.ToRGBA()); err != nil {
			return fmt.Errorf("while encoding png: %w", err)
		}
		return nil
	})
}

func (c *Client) WriteSampleDB(ctx context.Context, loc Location, db *sampledb.SampleDB) error {
	return c.write(ctx, "Client.WriteSampleDB", loc, func(w io.Writer) error {
		return sampledb.WriteSampleDB(db, w)
	})
}

func (c *Client) ReadSampleDB(ctx context.Context, loc Location) (*sampledb.SampleDB, error) {
	tracer := otel.Tracer("row-major.net/harpoon/output")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Client.ReadSampleDB")
	defer span.End()

	span.SetAttributes(attribute.String("location", loc.String()))

	r, err := c.Reader(ctx, loc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer r.Close()

	db, err := sampledb.ReadSampleDB(bufio.NewReader(r))
	if err != nil {
		err := fmt.Errorf("while reading sample db from %v: %w", loc, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return db, nil
}
