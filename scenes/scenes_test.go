package scenes

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"row-major.net/harpoon/render"
	"row-major.net/harpoon/sampledb"
)

func TestEverySceneRenders(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := ByName(name, Options{Width: 8, SamplesPerPixel: 1, MaxDepth: 3, Seed: 1})
			if err != nil {
				t.Fatalf("Error while building scene: %v", err)
			}
			if s.Width != 8 || s.Height < 1 {
				t.Errorf("Scene is %dx%d, want width 8", s.Width, s.Height)
			}
			if err := s.Crush(context.Background()); err != nil {
				t.Fatalf("Error while crushing scene: %v", err)
			}

			db := sampledb.New(s.Height, s.Width)
			if err := render.RenderScene(context.Background(), s, render.Options{Seed: 1}, db, nil); err != nil {
				t.Fatalf("Error while rendering: %v", err)
			}
			if got, want := db.TotalSamples(), uint64(s.Width*s.Height); got != want {
				t.Errorf("Rendered %d samples, want %d", got, want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	s, err := ByName("cornell-box", Options{})
	if err != nil {
		t.Fatalf("Error while building scene: %v", err)
	}
	got := []int{s.Width, s.Height, s.SamplesPerPixel, s.MaxDepth}
	if diff := cmp.Diff(got, []int{600, 600, 200, 50}); diff != "" {
		t.Errorf("Bad defaults; diff (-got +want)\n%s", diff)
	}
}

func TestLayoutFollowsSeed(t *testing.T) {
	a, err := ByName("final", Options{Width: 8, Seed: 3})
	if err != nil {
		t.Fatalf("Error while building scene: %v", err)
	}
	b, err := ByName("final", Options{Width: 8, Seed: 3})
	if err != nil {
		t.Fatalf("Error while building scene: %v", err)
	}
	if len(a.Objects) != len(b.Objects) {
		t.Fatalf("Same seed gave %d and %d objects", len(a.Objects), len(b.Objects))
	}
	if diff := cmp.Diff(a.Objects[0].Bounds(0, 1), b.Objects[0].Bounds(0, 1)); diff != "" {
		t.Errorf("Same seed gave different layouts; diff (-got +want)\n%s", diff)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() is not sorted: %v", names)
	}
	if len(names) != len(registry) {
		t.Errorf("Names() has %d entries, registry has %d", len(names), len(registry))
	}
}

func TestUnknownScene(t *testing.T) {
	if _, err := ByName("no-such-scene", Options{}); err == nil {
		t.Errorf("ByName of an unknown scene succeeded")
	}
}

func TestMissingEarthImage(t *testing.T) {
	_, err := ByName("earth", Options{EarthImage: filepath.Join(t.TempDir(), "missing.jpg")})
	if err == nil {
		t.Errorf("ByName with a missing earth image succeeded")
	}
}
