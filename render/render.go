// Package render drives the integrator over every pixel of an image,
// spreading rows across a bounded pool of workers.
package render

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"row-major.net/harpoon/rendermetrics"
	"row-major.net/harpoon/sampledb"
	"row-major.net/harpoon/scene"
)

type Options struct {
	// Maximum number of surfaces a path may visit.  Zero uses the scene's
	// MaxDepth.
	MaxDepth int

	// Samples each pixel should hold when the render finishes, counting
	// samples already in the sample DB.  Zero uses the scene's
	// SamplesPerPixel.
	TargetSubsamples int

	// Seed selects the random sequence.  Renders with the same seed, scene and
	// starting sample DB produce bit-identical results.
	Seed int64

	// Rows rendered concurrently.  Zero uses one per CPU.
	Parallelism int

	// Optional.
	Metrics *rendermetrics.Recorder
}

func (o Options) withDefaults(s *scene.Scene) Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = s.MaxDepth
	}
	if o.TargetSubsamples <= 0 {
		o.TargetSubsamples = s.SamplesPerPixel
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	return o
}

// ProgressFunction receives the number of new samples traced so far and the
// number the render will trace in total.  It is called with the sample DB
// locked, so it may read (but not modify) the DB.
type ProgressFunction func(done, total uint64)

// samplesWanted is how many new samples the render will add to db.
func samplesWanted(db *sampledb.SampleDB, target int) uint64 {
	var want uint64
	for _, c := range db.Counts {
		if int(c) < target {
			want += uint64(target - int(c))
		}
	}
	return want
}

// RenderScene adds samples to db until every pixel holds
// opts.TargetSubsamples of them.  Each row is cut out of db, rendered by one
// worker, and pasted back.  If ctx is cancelled, rows already pasted keep their
// samples, no new rows start, and ctx.Err() is returned.
func RenderScene(ctx context.Context, s *scene.Scene, opts Options, db *sampledb.SampleDB, progress ProgressFunction) error {
	tracer := otel.Tracer("row-major.net/harpoon/render")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "RenderScene")
	defer span.End()

	if !s.Crushed() {
		return fmt.Errorf("scene has not been crushed")
	}
	if db.RowSize != s.Height || db.ColSize != s.Width {
		return fmt.Errorf("sample db is %dx%d, but the scene is %dx%d", db.ColSize, db.RowSize, s.Width, s.Height)
	}

	opts = opts.withDefaults(s)

	span.SetAttributes(
		attribute.Int("width", s.Width),
		attribute.Int("height", s.Height),
		attribute.Int("target_subsamples", opts.TargetSubsamples),
		attribute.Int("max_depth", opts.MaxDepth),
		attribute.Int("parallelism", opts.Parallelism),
	)

	totalSamples := samplesWanted(db, opts.TargetSubsamples)
	var curProgress uint64

	// pasteMutex locks both curProgress and db.
	pasteMutex := sync.Mutex{}

	logLimiter := rate.NewLimiter(rate.Every(10*time.Second), 1)
	startTime := time.Now()

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(opts.Parallelism))

	// rowsDispatched stops short of db.RowSize if the context is cancelled.
	rowsDispatched := 0
	for row := 0; row < db.RowSize; row++ {
		row := row // https://golang.org/doc/faq#closures_and_goroutines

		if err := sem.Acquire(egCtx, 1); err != nil {
			break
		}
		rowsDispatched++

		pasteMutex.Lock()
		w := &rowWorker{
			scene:         s,
			sampleDB:      db.Cut(row, row+1, 0, db.ColSize),
			row:           row,
			maxDepth:      opts.MaxDepth,
			targetSamples: opts.TargetSubsamples,
		}
		pasteMutex.Unlock()

		eg.Go(func() error {
			defer sem.Release(1)

			rowStart := time.Now()
			added, err := w.render(egCtx, opts.Seed)
			if err != nil {
				return err
			}
			opts.Metrics.RowDone(egCtx, int64(added), float64(time.Since(rowStart))/float64(time.Millisecond))

			pasteMutex.Lock()
			defer pasteMutex.Unlock()

			db.Paste(w.sampleDB, w.row, 0)
			curProgress += added

			if progress != nil {
				progress(curProgress, totalSamples)
			}
			if logLimiter.Allow() {
				glog.Infof("Rendered %d/%d samples (%.1f%%) in %v", curProgress, totalSamples, 100*float64(curProgress)/float64(max(totalSamples, 1)), time.Since(startTime).Round(time.Second))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return ctxErr
		}
		err := fmt.Errorf("while waiting for completion of errgroup: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := ctx.Err(); err != nil {
		glog.Warningf("Render interrupted after %d/%d rows", rowsDispatched, db.RowSize)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	glog.Infof("Render complete: %d samples in %v", curProgress, time.Since(startTime).Round(time.Millisecond))
	span.SetStatus(codes.Ok, "")
	return nil
}
