package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// TaskQueue is the default queue served by cmd/wildfire-worker.
const TaskQueue = "wildfire-ingest"

// IngestInput names the timeline to ingest.
type IngestInput struct {
	Location string
}

// IngestResult is returned when the timeline has been published.
type IngestResult struct {
	Location string
	SHA256   string
	Summary  domain.TimelineSummary
}

// WildfireIngestWorkflow validates a timeline and publishes it for the API
// processes to load. Validation failures that retrying cannot fix (no
// parseable frames, missing file) end the workflow without retries.
func WildfireIngestWorkflow(ctx workflow.Context, input IngestInput) (*IngestResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("wildfire ingest started", "location", input.Location)

	if input.Location == "" {
		return nil, temporal.NewNonRetryableApplicationError("timeline location is required", ErrTypeBadInput, domain.ErrInvalidArgument)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var a *IngestActivities

	var report TimelineReport
	if err := workflow.ExecuteActivity(ctx, a.ValidateTimeline, input.Location).Get(ctx, &report); err != nil {
		logger.Error("timeline validation failed", "location", input.Location, "error", err)
		return nil, err
	}
	logger.Info("timeline validated",
		"frames", report.Summary.Frames,
		"skipped_lines", report.Summary.SkippedLines,
		"sha256", report.SHA256)

	if err := workflow.ExecuteActivity(ctx, a.PublishTimeline, report).Get(ctx, nil); err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == ErrTypeSourceChanged {
			logger.Warn("timeline changed between validation and publish", "location", input.Location)
		}
		return nil, err
	}

	return &IngestResult{Location: report.Location, SHA256: report.SHA256, Summary: report.Summary}, nil
}
