// Package rendermetrics records render progress as OpenCensus measurements.
package rendermetrics

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var sceneKey = tag.MustNewKey("scene")

type Recorder struct {
	samplesTraced     *stats.Int64Measure
	samplesTracedView *view.View

	rowsCompleted     *stats.Int64Measure
	rowsCompletedView *view.View

	rowLatency     *stats.Float64Measure
	rowLatencyView *view.View

	scene string
}

// New returns a Recorder that tags every measurement with the scene name.
func New(scene string) *Recorder {
	r := &Recorder{scene: scene}

	r.samplesTraced = stats.Int64("samples_traced", "Camera rays traced to completion", stats.UnitDimensionless)
	r.samplesTracedView = &view.View{
		Name:        "samples_traced",
		Description: "Count of camera rays traced to completion",

		TagKeys: []tag.Key{sceneKey},

		Measure:     r.samplesTraced,
		Aggregation: view.Sum(),
	}

	r.rowsCompleted = stats.Int64("rows_completed", "Image rows brought to the target sample count", stats.UnitDimensionless)
	r.rowsCompletedView = &view.View{
		Name:        "rows_completed",
		Description: "Count of image rows brought to the target sample count",

		TagKeys: []tag.Key{sceneKey},

		Measure:     r.rowsCompleted,
		Aggregation: view.Count(),
	}

	r.rowLatency = stats.Float64("row_latency", "Wall time spent rendering one row", stats.UnitMilliseconds)
	r.rowLatencyView = &view.View{
		Name:        "row_latency",
		Description: "Distribution of wall time spent rendering one row",

		TagKeys: []tag.Key{sceneKey},

		Measure:     r.rowLatency,
		Aggregation: view.Distribution(1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000),
	}

	return r
}

func (r *Recorder) Views() []*view.View {
	return []*view.View{r.samplesTracedView, r.rowsCompletedView, r.rowLatencyView}
}

func (r *Recorder) RegisterMetrics() error {
	return view.Register(r.Views()...)
}

func (r *Recorder) UnregisterMetrics() {
	view.Unregister(r.Views()...)
}

// RowDone records a finished row that needed the given number of new samples.
func (r *Recorder) RowDone(ctx context.Context, samples int64, millis float64) {
	if r == nil {
		return
	}
	stats.RecordWithOptions(
		ctx,
		stats.WithTags(tag.Insert(sceneKey, r.scene)),
		stats.WithMeasurements(
			r.samplesTraced.M(samples),
			r.rowsCompleted.M(1),
			r.rowLatency.M(millis),
		))
}
