package output

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"row-major.net/harpoon/sampledb"
	"row-major.net/harpoon/vmath/vec3"
)

func TestParseLocation(t *testing.T) {
	testCases := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{
			in:   "gs://my-bucket/renders/final.png",
			want: Location{Bucket: "my-bucket", Object: "renders/final.png"},
		},
		{
			in:   "out/final.png",
			want: Location{Path: "out/final.png"},
		},
		{
			in:   "/tmp/final.png",
			want: Location{Path: "/tmp/final.png"},
		},
		{
			in:      "",
			wantErr: true,
		},
		{
			in:      "gs://my-bucket",
			wantErr: true,
		},
		{
			in:      "gs://my-bucket/",
			wantErr: true,
		},
		{
			in:      "gs:///final.png",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLocation(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLocation(%q) = %+v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Error while parsing: %v", err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("Bad location; diff (-got +want)\n%s", diff)
			}
			if got.String() != tc.in {
				t.Errorf("String() = %q, want %q", got.String(), tc.in)
			}
		})
	}
}

func TestWritePNG(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loc := Location{Path: filepath.Join(dir, "out.png")}

	img := &sampledb.Image{
		Width:  2,
		Height: 1,
		Pix:    []vec3.T{{1, 0, 0}, {0, 0.5, 1}},
	}
	if err := NewClient(nil).WritePNG(ctx, loc, img); err != nil {
		t.Fatalf("Error while writing png: %v", err)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		t.Fatalf("Error while opening png: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Error while decoding png: %v", err)
	}

	if got := decoded.Bounds().Size(); got.X != 2 || got.Y != 1 {
		t.Fatalf("Image is %v, want 2x1", got)
	}
	if diff := cmp.Diff(color.RGBAModel.Convert(decoded.At(1, 0)), color.RGBA{0, 128, 255, 255}); diff != "" {
		t.Errorf("Bad pixel; diff (-got +want)\n%s", diff)
	}

	if _, err := os.Stat(loc.Path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temporary file left behind: %v", err)
	}
}

func TestSampleDBRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewClient(nil)
	loc := Location{Path: filepath.Join(t.TempDir(), "render.sampledb")}

	db := sampledb.New(2, 3)
	db.RecordSample(1, 2, vec3.T{0.25, 0.5, 0.75})
	if err := c.WriteSampleDB(ctx, loc, db); err != nil {
		t.Fatalf("Error while writing sample db: %v", err)
	}

	got, err := c.ReadSampleDB(ctx, loc)
	if err != nil {
		t.Fatalf("Error while reading sample db: %v", err)
	}
	if diff := cmp.Diff(got, db); diff != "" {
		t.Errorf("Sample db changed in round trip; diff (-got +want)\n%s", diff)
	}
}

func TestGCSWithoutClient(t *testing.T) {
	ctx := context.Background()
	loc := Location{Bucket: "b", Object: "o"}
	c := NewClient(nil)

	if err := c.WritePNG(ctx, loc, &sampledb.Image{}); err == nil {
		t.Errorf("WritePNG to GCS without a client succeeded")
	}
	if _, err := c.ReadSampleDB(ctx, loc); err == nil {
		t.Errorf("ReadSampleDB from GCS without a client succeeded")
	}
}

func TestMissingLocalFile(t *testing.T) {
	loc := Location{Path: filepath.Join(t.TempDir(), "missing")}
	if _, err := NewClient(nil).ReadSampleDB(context.Background(), loc); err == nil {
		t.Errorf("ReadSampleDB of a missing file succeeded")
	}
}
