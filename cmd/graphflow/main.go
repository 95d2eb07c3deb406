package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/deepnoodle-ai/graphflow"
	"github.com/fatih/color"
)

// CLI configuration
type Config struct {
	DataDir    string
	RunID      string
	Checkpoint string
	Delete     bool
	JSON       bool
	Verbose    bool
}

func main() {
	config := parseFlags()
	logger := setupLogger(config)

	store, err := graphflow.NewFileCheckpointStore(config.DataDir)
	if err != nil {
		log.Fatalf("Failed to open checkpoint store: %v", err)
	}
	manager, err := graphflow.NewCheckpointManager(graphflow.CheckpointManagerOptions{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("Failed to create checkpoint manager: %v", err)
	}

	ctx := context.Background()

	switch {
	case config.Delete:
		if config.RunID == "" {
			color.Red("Error: -delete requires -run")
			os.Exit(1)
		}
		if err := manager.DeleteRun(ctx, config.RunID); err != nil {
			log.Fatalf("Failed to delete run: %v", err)
		}
		color.Green("Deleted run %s", config.RunID)

	case config.Checkpoint != "":
		if config.RunID == "" {
			color.Red("Error: -checkpoint requires -run")
			os.Exit(1)
		}
		showCheckpoint(ctx, manager, config)

	case config.RunID != "":
		showLineage(ctx, manager, config)

	default:
		listRuns(ctx, store, config)
	}
}

func listRuns(ctx context.Context, store *graphflow.FileCheckpointStore, config *Config) {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if config.JSON {
		printJSON(runs)
		return
	}
	if len(runs) == 0 {
		color.Yellow("No runs found")
		return
	}
	for _, run := range runs {
		statusColor(run.Status).Printf("%-10s", run.Status)
		fmt.Printf(" %s  %s  step %d, %d checkpoints  %s\n",
			run.RunID, run.WorkflowName, run.SuperStep, run.Checkpoints,
			run.CreatedAt.Format(time.RFC3339))
	}
}

func showLineage(ctx context.Context, manager *graphflow.CheckpointManager, config *Config) {
	infos, err := manager.Checkpoints(ctx, config.RunID)
	if err != nil {
		log.Fatalf("Failed to list checkpoints: %v", err)
	}
	if config.JSON {
		printJSON(infos)
		return
	}
	if len(infos) == 0 {
		color.Yellow("No checkpoints for run %s", config.RunID)
		return
	}
	color.Cyan("Run %s: %d checkpoints", config.RunID, len(infos))
	for _, info := range infos {
		parent := info.ParentID
		if parent == "" {
			parent = "(root)"
		}
		fmt.Printf("  %s  parent %s\n", info.CheckpointID, parent)
	}
}

func showCheckpoint(ctx context.Context, manager *graphflow.CheckpointManager, config *Config) {
	checkpoint, err := manager.LookupCheckpoint(ctx, graphflow.CheckpointInfo{
		RunID:        config.RunID,
		CheckpointID: config.Checkpoint,
	})
	if err != nil {
		log.Fatalf("Failed to load checkpoint: %v", err)
	}
	if config.JSON {
		printJSON(checkpoint)
		return
	}
	color.Cyan("Checkpoint %s (run %s)", checkpoint.CheckpointID, checkpoint.RunID)
	fmt.Printf("  workflow:   %s\n", checkpoint.WorkflowName)
	fmt.Printf("  status:     %s\n", checkpoint.Status)
	fmt.Printf("  super-step: %d\n", checkpoint.SuperStep)
	fmt.Printf("  created:    %s\n", checkpoint.CreatedAt.Format(time.RFC3339))
	queued := 0
	for _, records := range checkpoint.Mailboxes {
		queued += len(records)
	}
	fmt.Printf("  queued:     %d messages\n", queued)
	if len(checkpoint.Requests) > 0 {
		color.Yellow("  pending requests:")
		for _, request := range checkpoint.Requests {
			fmt.Printf("    %s  %s on port %s\n", request.RequestID, request.ExecutorID, request.Port.PortID)
		}
	}
	if len(checkpoint.Outputs) > 0 {
		fmt.Printf("  outputs:    %d\n", len(checkpoint.Outputs))
	}
}

func setupLogger(config *Config) *slog.Logger {
	level := slog.LevelWarn
	if config.Verbose {
		level = slog.LevelDebug
	}
	if config.JSON {
		return graphflow.NewJSONLogger(level)
	}
	return graphflow.NewLogger(level)
}

func statusColor(status graphflow.RunStatus) *color.Color {
	switch status {
	case graphflow.RunStatusCompleted:
		return color.New(color.FgGreen)
	case graphflow.RunStatusFailed:
		return color.New(color.FgRed)
	case graphflow.RunStatusSuspended:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

func printJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal output: %v", err)
	}
	fmt.Println(string(data))
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.DataDir, "dir", "", "Checkpoint data directory (default ~/.graphflow/runs)")
	flag.StringVar(&config.DataDir, "d", "", "Checkpoint data directory (shorthand)")
	flag.StringVar(&config.RunID, "run", "", "Run ID to inspect")
	flag.StringVar(&config.RunID, "r", "", "Run ID to inspect (shorthand)")
	flag.StringVar(&config.Checkpoint, "checkpoint", "", "Checkpoint ID to show (requires -run)")
	flag.StringVar(&config.Checkpoint, "c", "", "Checkpoint ID to show (shorthand)")
	flag.BoolVar(&config.Delete, "delete", false, "Delete the run given by -run")
	flag.BoolVar(&config.JSON, "json", false, "Output in JSON format")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&config.Verbose, "v", false, "Enable debug logging (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `graphflow - inspect workflow runs and checkpoint lineage

Usage: %s [options]

Examples:
  # List all runs in the default data directory
  %s

  # Show the checkpoint lineage of a run
  %s -run run_01h455vb4pex5vsknk084sn02q

  # Show one checkpoint in detail
  %s -run run_01h455vb4pex5vsknk084sn02q -checkpoint ckpt_01h455vb4pex5vsknk084sn02q

  # Delete a run and all its checkpoints
  %s -run run_01h455vb4pex5vsknk084sn02q -delete

Options:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()
	return config
}
