package render

import (
	"context"
	"math/rand"

	"row-major.net/harpoon/sampledb"
	"row-major.net/harpoon/scene"
)

// rowWorker renders one image row into its private cut of the sample DB.
type rowWorker struct {
	scene *scene.Scene

	// A one-row cut, indexed from column 0.
	sampleDB *sampledb.SampleDB

	// The row's position in the full image.
	row int

	maxDepth      int
	targetSamples int
}

// splitmix64 scrambles its input so that nearby seeds give unrelated
// generator states.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// rowSeed depends only on the render seed, the row, and the samples the row
// already holds.  Work partitioning never changes which samples a pixel gets,
// and resuming a render continues with fresh random choices instead of
// repeating the ones already recorded.
func rowSeed(seed int64, row int, existing uint64) int64 {
	h := splitmix64(uint64(seed))
	h = splitmix64(h ^ uint64(row))
	h = splitmix64(h ^ existing)
	return int64(h)
}

// render tops up every pixel of the row to the target sample count and
// returns the number of samples added.  It gives up between pixels if ctx is
// done.
func (w *rowWorker) render(ctx context.Context, seed int64) (uint64, error) {
	rng := rand.New(rand.NewSource(rowSeed(seed, w.row, w.sampleDB.TotalSamples())))

	var added uint64
	for c := 0; c < w.sampleDB.ColSize; c++ {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		have := int(w.sampleDB.ReadSample(0, c).Count)
		for cs := have; cs < w.targetSamples; cs++ {
			curQuery := w.scene.Cameras[0].ImageToRay(w.row, w.scene.Height, c, w.scene.Width, rng)
			w.sampleDB.RecordSample(0, c, w.scene.SampleRay(curQuery, rng, w.maxDepth))
			added++
		}
	}
	return added, nil
}
