// renderer path traces one of the built-in scenes and writes the result as a
// PNG.  Long renders can be checkpointed to a local store and resumed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"row-major.net/harpoon/checkpoint"
	"row-major.net/harpoon/output"
	"row-major.net/harpoon/render"
	"row-major.net/harpoon/rendermetrics"
	"row-major.net/harpoon/sampledb"
	"row-major.net/harpoon/scene"
	"row-major.net/harpoon/scenes"
	"row-major.net/harpoon/statusz"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/profiler"
	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudmetrics "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"
	"golang.org/x/time/rate"
	googleopt "google.golang.org/api/option"
)

var (
	sceneName   = flag.String("scene", "bouncing-spheres", "Which built-in scene to render.")
	width       = flag.Int("width", 0, "Output image width.  Zero uses the scene's default; height follows the scene's aspect ratio.")
	spp         = flag.Int("spp", 0, "Samples per pixel.  Zero uses the scene's default.")
	maxDepth    = flag.Int("max-depth", 0, "Maximum number of bounces to consider.  Zero uses the scene's default.")
	seed        = flag.Int64("seed", 1, "Seed for the render's random sequence.")
	sceneSeed   = flag.Int64("scene-seed", 0, "Seed for random scene layout.")
	earthImage  = flag.String("earth-image", "", "Equirectangular earth map used by the earth and final scenes.")
	parallelism = flag.Int("parallelism", 0, "Rows rendered concurrently.  Zero uses one per CPU.")

	outputLocation   = flag.String("output", "output.png", "Where to write the PNG (local path or gs://bucket/object).")
	sampleDBLocation = flag.String("sampledb-output", "", "If set, also write the raw sample db here (local path or gs://bucket/object).")

	checkpointDir      = flag.String("checkpoint-dir", "", "If set, checkpoint the sample db into a badger store in this directory, and resume from it.")
	checkpointName     = flag.String("checkpoint-name", "", "Name of this render's checkpoint.  Defaults to the scene name.")
	checkpointFile     = flag.String("checkpoint-file", "", "Resume from a sample db file written by an earlier --sampledb-output.")
	checkpointInterval = flag.Duration("checkpoint-interval", 5*time.Minute, "How often to checkpoint while rendering.")

	debugListen          = flag.String("debug-listen", "", "Server address:port for debug endpoint.  Empty disables it.")
	monitoring           = flag.Bool("monitoring", false, "Enable monitoring?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 0.01, "What ratio of traces should be exported?")
	enableProfiling      = flag.Bool("enable-profiling", false, "Enable Cloud Profiler.")
	enableMetrics        = flag.Bool("enable-metrics", false, "Export render metrics to Cloud Monitoring through OpenCensus.")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")

	glog.Infof("flags:")
	flag.VisitAll(func(f *flag.Flag) {
		glog.Infof("%s: %q", f.Name, f.Value.String())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		glog.Warningf("Received %v; checkpointing and stopping", sig)
		cancel()
	}()

	err := do(ctx)
	glog.Flush()
	if err != nil {
		glog.Exitf("Error: %+v", err)
	}
}

func monitoringProjectID() string {
	if *monitoringProject != "" {
		return *monitoringProject
	}
	if metadata.OnGCE() {
		if id, err := metadata.ProjectID(); err == nil {
			return id
		}
	}
	return ""
}

// setUpMonitoring installs the exporters requested by flags.  The returned
// function flushes and stops them.
func setUpMonitoring(ctx context.Context, recorder *rendermetrics.Recorder) (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	project := monitoringProjectID()

	// Cloud Profiler initialization, best done as early as possible.
	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "harpoon-renderer",
			ServiceVersion: "0.0.1",
			ProjectID:      project,
		}); err != nil {
			return stopAll, fmt.Errorf("while initializing profiler: %w", err)
		}
	}

	if *monitoring {
		metricsOpts := []cloudmetrics.Option{}
		traceOpts := []cloudtrace.Option{}
		if project != "" {
			metricsOpts = append(metricsOpts, cloudmetrics.WithProjectID(project))
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(project))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			return stopAll, fmt.Errorf("while installing Cloud Trace OpenTelemetry trace pipeline: %w", err)
		}
		stops = append(stops, traceShutdown)

		pusher, err := cloudmetrics.InstallNewPipeline(metricsOpts)
		if err != nil {
			return stopAll, fmt.Errorf("while installing Cloud Metrics OpenTelemetry meter pipeline: %w", err)
		}
		stops = append(stops, func() { pusher.Stop(ctx) })
	}

	if *enableMetrics {
		if err := recorder.RegisterMetrics(); err != nil {
			return stopAll, fmt.Errorf("while registering render metrics: %w", err)
		}

		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         project,
			MetricPrefix:      "harpoon",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return stopAll, fmt.Errorf("while initializing stackdriver exporter: %w", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			return stopAll, fmt.Errorf("while starting stackdriver metrics exporter: %w", err)
		}
		stops = append(stops, func() {
			exporter.Flush()
			exporter.StopMetricsExporter()
		})
	}

	return stopAll, nil
}

// loadSampleDB returns the sample db to render into: a checkpoint if one
// exists, otherwise a fresh one.
func loadSampleDB(ctx context.Context, store *checkpoint.Store, out *output.Client, name string, s *scene.Scene) (*sampledb.SampleDB, error) {
	var db *sampledb.SampleDB
	var from string

	if *checkpointFile != "" {
		loc, err := output.ParseLocation(*checkpointFile)
		if err != nil {
			return nil, fmt.Errorf("while parsing --checkpoint-file: %w", err)
		}
		db, err = out.ReadSampleDB(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("resumption requested, but encountered error loading existing file: %w", err)
		}
		from = loc.String()
	} else if store != nil {
		var found bool
		var err error
		db, found, err = store.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("while loading checkpoint %q: %w", name, err)
		}
		if !found {
			db = nil
		}
		from = fmt.Sprintf("checkpoint %q", name)
	}

	if db == nil {
		return sampledb.New(s.Height, s.Width), nil
	}

	if db.RowSize != s.Height {
		return nil, fmt.Errorf("resumption requested, but the existing sample db doesn't have the right number of rows (got %d, want %d)", db.RowSize, s.Height)
	}
	if db.ColSize != s.Width {
		return nil, fmt.Errorf("resumption requested, but the existing sample db doesn't have the right number of columns (got %d, want %d)", db.ColSize, s.Width)
	}

	glog.Infof("Resuming from %s with %d samples already recorded", from, db.TotalSamples())
	return db, nil
}

func needsGCS(locs ...string) bool {
	for _, l := range locs {
		if loc, err := output.ParseLocation(l); err == nil && loc.IsGCS() {
			return true
		}
	}
	return false
}

func do(ctx context.Context) error {
	recorder := rendermetrics.New(*sceneName)

	stopMonitoring, err := setUpMonitoring(ctx, recorder)
	defer stopMonitoring()
	if err != nil {
		return err
	}

	s, err := scenes.ByName(*sceneName, scenes.Options{
		Width:           *width,
		SamplesPerPixel: *spp,
		MaxDepth:        *maxDepth,
		Seed:            *sceneSeed,
		EarthImage:      *earthImage,
	})
	if err != nil {
		return err
	}

	if err := s.Crush(ctx); err != nil {
		var cerr *scene.ConfigError
		if errors.As(err, &cerr) {
			for _, p := range cerr.Problems {
				glog.Errorf("Scene problem: %s", p)
			}
		}
		return fmt.Errorf("while crushing scene: %w", err)
	}

	var gcs *storage.Client
	if needsGCS(*outputLocation, *sampleDBLocation, *checkpointFile) {
		gcs, err = storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
		if err != nil {
			return fmt.Errorf("while creating GCS client: %w", err)
		}
		defer gcs.Close()
	}
	out := output.NewClient(gcs)

	outLoc, err := output.ParseLocation(*outputLocation)
	if err != nil {
		return fmt.Errorf("while parsing --output: %w", err)
	}

	name := *checkpointName
	if name == "" {
		name = *sceneName
	}

	var store *checkpoint.Store
	if *checkpointDir != "" {
		store, err = checkpoint.Open(*checkpointDir)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	db, err := loadSampleDB(ctx, store, out, name, s)
	if err != nil {
		return err
	}

	status := statusz.New(*sceneName, s.Width, s.Height)
	if *debugListen != "" {
		debugServeMux := http.NewServeMux()
		status.Register(debugServeMux)
		debugServer := &http.Server{
			Addr:    *debugListen,
			Handler: debugServeMux,

			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				glog.Errorf("Debug server died: %v", err)
			}
		}()
		defer debugServer.Close()
	}

	var bar *progressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = newProgressBar(os.Stderr)
	}

	checkpointLimiter := rate.NewLimiter(rate.Every(*checkpointInterval), 1)
	checkpointLimiter.Allow()

	var ckpt *checkpointer
	if store != nil {
		ckpt = newCheckpointer(ctx, func(ctx context.Context, snap *sampledb.SampleDB) error {
			return store.Put(ctx, name, snap)
		})
	}

	progress := func(done, total uint64) {
		status.Progress(done, total)
		bar.Update(done, total)

		// The db is locked while we are called, so it is safe to copy.  The
		// write itself happens off the lock.
		if ckpt != nil && checkpointLimiter.Allow() {
			ckpt.Offer(db.Cut(0, db.RowSize, 0, db.ColSize))
		}
	}

	glog.Infof("Rendering %q at %dx%d, %d samples per pixel, max depth %d", *sceneName, s.Width, s.Height, s.SamplesPerPixel, s.MaxDepth)

	renderErr := render.RenderScene(ctx, s, render.Options{
		Seed:        *seed,
		Parallelism: *parallelism,
		Metrics:     recorder,
	}, db, progress)
	bar.Finish()

	if ckpt != nil {
		ckpt.Close()
	}

	if store != nil {
		// The render context may be cancelled; the final checkpoint must still
		// land.
		if err := store.Put(context.Background(), name, db); err != nil {
			return fmt.Errorf("while writing final checkpoint: %w", err)
		}
	}

	if renderErr != nil {
		return fmt.Errorf("while rendering: %w", renderErr)
	}
	status.MarkDone()

	if *sampleDBLocation != "" {
		loc, err := output.ParseLocation(*sampleDBLocation)
		if err != nil {
			return fmt.Errorf("while parsing --sampledb-output: %w", err)
		}
		if err := out.WriteSampleDB(ctx, loc, db); err != nil {
			return fmt.Errorf("while writing sample db: %w", err)
		}
		glog.Infof("Wrote sample db to %v", loc)
	}

	if err := out.WritePNG(ctx, outLoc, db.Develop()); err != nil {
		return fmt.Errorf("while writing image: %w", err)
	}
	glog.Infof("Wrote image to %v", outLoc)

	return nil
}
