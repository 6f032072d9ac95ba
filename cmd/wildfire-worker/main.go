package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/evacguide/internal/adapters/nats"
	"github.com/samirrijal/evacguide/internal/adapters/source"
	"github.com/samirrijal/evacguide/internal/pkg/config"
	"github.com/samirrijal/evacguide/internal/pkg/logging"
	"github.com/samirrijal/evacguide/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("evacguide-wildfire-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.WildfireIngestWorkflow)
	w.RegisterActivity(&workflows.IngestActivities{
		Source: source.NewReader(),
		Events: pub,
	})

	if cfg.Wildfire.SourcePath != "" {
		if err := startIngest(c, cfg.Temporal.TaskQueue, cfg.Wildfire.SourcePath); err != nil {
			slog.Error("start wildfire ingest", "location", cfg.Wildfire.SourcePath, "error", err)
		}
	}

	slog.Info("wildfire worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// startIngest schedules one ingestion of location. The workflow ID is keyed by
// location so a restarted worker does not queue a duplicate run.
func startIngest(c client.Client, taskQueue, location string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("wildfire-ingest:%s", location),
		TaskQueue:                taskQueue,
		WorkflowExecutionTimeout: 15 * time.Minute,
	}, workflows.WildfireIngestWorkflow, workflows.IngestInput{Location: location})
	if err != nil {
		return err
	}
	slog.Info("wildfire ingest scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
