// harpoon-tool inspects and develops render checkpoints and sample dbs.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"row-major.net/harpoon/checkpoint"
	"row-major.net/harpoon/output"
	"row-major.net/harpoon/sampledb"
	"row-major.net/harpoon/scenes"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	googleopt "google.golang.org/api/option"
)

var cmdRoot = &cobra.Command{
	Use: "harpoon-tool",
}

var (
	checkpointDir string
)

func init() {
	cmdRoot.PersistentFlags().StringVar(&checkpointDir, "checkpoint-dir", "", "Directory of the renderer's checkpoint store.")
}

func openStore() (*checkpoint.Store, error) {
	if checkpointDir == "" {
		return nil, fmt.Errorf("--checkpoint-dir is required")
	}
	return checkpoint.Open(checkpointDir)
}

// outputClient creates a GCS client only if one of locs needs it.
func outputClient(ctx context.Context, locs ...output.Location) (*output.Client, func(), error) {
	for _, l := range locs {
		if !l.IsGCS() {
			continue
		}
		gcs, err := storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
		if err != nil {
			return nil, nil, fmt.Errorf("while creating GCS client: %w", err)
		}
		return output.NewClient(gcs), func() { gcs.Close() }, nil
	}
	return output.NewClient(nil), func() {}, nil
}

func printSampleDBSummary(db *sampledb.SampleDB) {
	minCount, maxCount := uint32(0), uint32(0)
	for i, c := range db.Counts {
		if i == 0 || c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}
	fmt.Printf("size: %dx%d\n", db.ColSize, db.RowSize)
	fmt.Printf("samples: %d\n", db.TotalSamples())
	fmt.Printf("samples per pixel: min %d, max %d\n", minCount, maxCount)
}

var cmdCheckpoints = &cobra.Command{
	Use: "checkpoints [command]",
}

var cmdCheckpointsList = &cobra.Command{
	Use: "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("while listing checkpoints: %w", err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tSAMPLES\tBYTES\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%d\t%s\n", e.Name, e.ColSize, e.RowSize, e.Samples, e.Bytes, e.UpdateTime.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var cmdCheckpointsShow = &cobra.Command{
	Use:  "show NAME",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		db, found, err := store.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("while loading checkpoint: %w", err)
		}
		if !found {
			return fmt.Errorf("no checkpoint named %q", args[0])
		}

		fmt.Printf("name: %s\n", args[0])
		printSampleDBSummary(db)
		return nil
	},
}

var cmdCheckpointsDelete = &cobra.Command{
	Use:  "delete NAME",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("while deleting checkpoint: %w", err)
		}
		return nil
	},
}

var cmdCheckpointsDevelop = &cobra.Command{
	Use:  "develop NAME OUTPUT",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		outLoc, err := output.ParseLocation(args[1])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		db, found, err := store.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("while loading checkpoint: %w", err)
		}
		if !found {
			return fmt.Errorf("no checkpoint named %q", args[0])
		}

		out, closeOut, err := outputClient(ctx, outLoc)
		if err != nil {
			return err
		}
		defer closeOut()

		if err := out.WritePNG(ctx, outLoc, db.Develop()); err != nil {
			return fmt.Errorf("while writing image: %w", err)
		}
		return nil
	},
}

var cmdSampleDB = &cobra.Command{
	Use: "sampledb [command]",
}

var cmdSampleDBInfo = &cobra.Command{
	Use:  "info INPUT",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		inLoc, err := output.ParseLocation(args[0])
		if err != nil {
			return err
		}

		out, closeOut, err := outputClient(ctx, inLoc)
		if err != nil {
			return err
		}
		defer closeOut()

		db, err := out.ReadSampleDB(ctx, inLoc)
		if err != nil {
			return err
		}

		printSampleDBSummary(db)
		return nil
	},
}

var cmdSampleDBDevelop = &cobra.Command{
	Use:  "develop INPUT OUTPUT",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		inLoc, err := output.ParseLocation(args[0])
		if err != nil {
			return err
		}
		outLoc, err := output.ParseLocation(args[1])
		if err != nil {
			return err
		}

		out, closeOut, err := outputClient(ctx, inLoc, outLoc)
		if err != nil {
			return err
		}
		defer closeOut()

		db, err := out.ReadSampleDB(ctx, inLoc)
		if err != nil {
			return err
		}

		if err := out.WritePNG(ctx, outLoc, db.Develop()); err != nil {
			return fmt.Errorf("while writing image: %w", err)
		}
		return nil
	},
}

var cmdScenes = &cobra.Command{
	Use: "scenes [command]",
}

var cmdScenesList = &cobra.Command{
	Use: "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, n := range scenes.Names() {
			fmt.Println(n)
		}
		return nil
	},
}

func main() {
	glog.CopyStandardLogTo("INFO")

	cmdRoot.AddCommand(cmdCheckpoints, cmdSampleDB, cmdScenes)
	cmdCheckpoints.AddCommand(cmdCheckpointsList, cmdCheckpointsShow, cmdCheckpointsDelete, cmdCheckpointsDevelop)
	cmdSampleDB.AddCommand(cmdSampleDBInfo, cmdSampleDBDevelop)
	cmdScenes.AddCommand(cmdScenesList)

	err := cmdRoot.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
