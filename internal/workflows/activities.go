// Package workflows holds the Temporal workflow that ingests wildfire
// timelines and hands them to API processes over NATS.
package workflows

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/core/wildfire"
)

// Error types reported as non-retryable application errors.
const (
	ErrTypeNoFrames      = "NoFramesParsed"
	ErrTypeSourceChanged = "SourceChanged"
	ErrTypeMissing       = "SourceMissing"
	ErrTypeBadInput      = "InvalidInput"
	ErrTypeRejected      = "EventRejected"
)

// TimelineReport describes a validated timeline. Only the digest travels
// through workflow history, never the payload.
type TimelineReport struct {
	Location string
	Bytes    int
	SHA256   string
	Summary  domain.TimelineSummary
}

// IngestActivities fetches, validates and publishes wildfire timelines.
type IngestActivities struct {
	Source ports.WildfireSource
	Events ports.EventPublisher
}

// ValidateTimeline fetches location and parses it as a timeline.
func (a *IngestActivities) ValidateTimeline(ctx context.Context, location string) (*TimelineReport, error) {
	raw, err := a.fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	tl, err := wildfire.Load(bytes.NewReader(raw), activityLogger(ctx))
	if err != nil {
		if errors.Is(err, domain.ErrNoFramesParsed) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoFrames, err)
		}
		return nil, fmt.Errorf("parse timeline: %w", err)
	}

	return &TimelineReport{
		Location: location,
		Bytes:    len(raw),
		SHA256:   wildfire.Digest(raw),
		Summary:  tl.Summary(),
	}, nil
}

// PublishTimeline confirms the source still matches the validated digest and
// publishes a reference to it. API processes fetch the timeline from
// report.Location themselves, so the event stays small whatever the timeline
// size. An event the broker refuses outright is not retried.
func (a *IngestActivities) PublishTimeline(ctx context.Context, report TimelineReport) error {
	raw, err := a.fetch(ctx, report.Location)
	if err != nil {
		return err
	}
	if got := wildfire.Digest(raw); got != report.SHA256 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("timeline at %s changed after validation (sha256 %s, want %s)", report.Location, got, report.SHA256),
			ErrTypeSourceChanged, nil)
	}
	event := &domain.TimelineIngested{
		Location:   report.Location,
		SHA256:     report.SHA256,
		Bytes:      report.Bytes,
		Summary:    report.Summary,
		IngestedAt: time.Now().UTC(),
	}
	if err := a.Events.PublishTimelineIngested(ctx, event); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRejected, err)
		}
		return fmt.Errorf("publish timeline: %w", err)
	}
	activityLogger(ctx).Info("timeline published",
		"location", report.Location, "bytes", report.Bytes, "frames", report.Summary.Frames)
	return nil
}

func (a *IngestActivities) fetch(ctx context.Context, location string) ([]byte, error) {
	raw, err := a.Source.FetchTimeline(ctx, location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMissing, err)
		}
		return nil, fmt.Errorf("fetch timeline %s: %w", location, err)
	}
	return raw, nil
}

// activityLogger tags slog output with the activity, falling back to the
// default logger outside an activity context (tests).
func activityLogger(ctx context.Context) *slog.Logger {
	if !activity.IsActivity(ctx) {
		return slog.Default()
	}
	info := activity.GetInfo(ctx)
	return slog.Default().With("activity", info.ActivityType.Name, "workflow_id", info.WorkflowExecution.ID, "attempt", info.Attempt)
}
