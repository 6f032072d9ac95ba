package workflows_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/workflows"
)

const timelineNDJSON = `{"time_minutes": 0, "burned_coordinates": [{"lat": 36.07, "lon": 129.33}]}
{"time_minutes": 5, "burned_coordinates": [{"lat": 36.07, "lon": 129.33}, {"lat": 36.0701, "lon": 129.33}]}
garbage
`

// mockSource serves payloads in order; the last one repeats.
type mockSource struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	calls    int
}

func (m *mockSource) FetchTimeline(_ context.Context, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls - 1
	if i >= len(m.payloads) {
		i = len(m.payloads) - 1
	}
	return m.payloads[i], nil
}

// brokerMaxPayload matches the NATS server default.
const brokerMaxPayload = 1 << 20

// mockPublisher refuses events over brokerMaxPayload the way the NATS
// adapter does.
type mockPublisher struct {
	mu        sync.Mutex
	published []*domain.TimelineIngested
	sizes     []int
	err       error
	calls     int
}

func (m *mockPublisher) PublishHazardZone(context.Context, *domain.HazardZone) error { return nil }

func (m *mockPublisher) PublishTimelineLoaded(context.Context, *domain.TimelineEvent) error {
	return nil
}

func (m *mockPublisher) PublishTimelineIngested(_ context.Context, event *domain.TimelineIngested) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if len(data) > brokerMaxPayload {
		return fmt.Errorf("%w: event is %d bytes", domain.ErrInvalidArgument, len(data))
	}
	m.published = append(m.published, event)
	m.sizes = append(m.sizes, len(data))
	return nil
}

// largeTimeline builds an NDJSON timeline of at least size bytes.
func largeTimeline(size int) []byte {
	var b strings.Builder
	for minute := 0; b.Len() < size; minute++ {
		fmt.Fprintf(&b, `{"time_minutes": %d, "burned_coordinates": [`, minute)
		for i := 0; i < 200; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, `{"lat": %.6f, "lon": %.6f}`, 36.0+float64(i)*0.0001, 129.3+float64(minute)*0.0001)
		}
		b.WriteString("]}\n")
	}
	return []byte(b.String())
}

func runWorkflow(t *testing.T, acts *workflows.IngestActivities, location string) (*workflows.IngestResult, error) {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.WildfireIngestWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.WildfireIngestWorkflow, workflows.IngestInput{Location: location})
	require.True(t, env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return nil, err
	}
	var result workflows.IngestResult
	require.NoError(t, env.GetWorkflowResult(&result))
	return &result, nil
}

func appErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}

func TestWildfireIngestWorkflow_PublishesValidatedTimeline(t *testing.T) {
	src := &mockSource{payloads: [][]byte{[]byte(timelineNDJSON)}}
	pub := &mockPublisher{}

	result, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: pub}, "/data/fire.ndjson")
	require.NoError(t, err)

	assert.Equal(t, "/data/fire.ndjson", result.Location)
	assert.Len(t, result.SHA256, 64)
	assert.Equal(t, 2, result.Summary.Frames)
	assert.Equal(t, 1, result.Summary.SkippedLines)
	assert.Equal(t, 5.0, result.Summary.LastMinute)

	require.Len(t, pub.published, 1)
	event := pub.published[0]
	assert.Equal(t, "/data/fire.ndjson", event.Location)
	assert.Equal(t, result.SHA256, event.SHA256)
	assert.Equal(t, len(timelineNDJSON), event.Bytes)
	assert.Equal(t, 2, event.Summary.Frames)
	assert.False(t, event.IngestedAt.IsZero())
	assert.Equal(t, 2, src.calls)
}

func TestWildfireIngestWorkflow_OversizeTimelinePublishesReference(t *testing.T) {
	raw := largeTimeline(2 * brokerMaxPayload)
	require.Greater(t, len(raw), brokerMaxPayload)
	src := &mockSource{payloads: [][]byte{raw}}
	pub := &mockPublisher{}

	result, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: pub}, "/data/large.ndjson")
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, len(raw), pub.published[0].Bytes)
	assert.Equal(t, result.SHA256, pub.published[0].SHA256)
	assert.Less(t, pub.sizes[0], 4096)
	assert.Equal(t, 1, pub.calls)
}

func TestWildfireIngestWorkflow_RejectedEventIsNotRetried(t *testing.T) {
	src := &mockSource{payloads: [][]byte{[]byte(timelineNDJSON)}}
	pub := &mockPublisher{err: fmt.Errorf("%w: message too large", domain.ErrInvalidArgument)}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: pub}, "/data/fire.ndjson")
	require.Error(t, err)
	assert.Equal(t, workflows.ErrTypeRejected, appErrorType(err))
	assert.Equal(t, 1, pub.calls)
}

func TestWildfireIngestWorkflow_NoFramesIsNotRetried(t *testing.T) {
	src := &mockSource{payloads: [][]byte{[]byte("garbage\nmore garbage\n")}}
	pub := &mockPublisher{}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: pub}, "/data/empty.ndjson")
	require.Error(t, err)
	assert.Equal(t, workflows.ErrTypeNoFrames, appErrorType(err))
	assert.Equal(t, 1, src.calls)
	assert.Empty(t, pub.published)
}

func TestWildfireIngestWorkflow_MissingFileIsNotRetried(t *testing.T) {
	src := &mockSource{err: fmt.Errorf("open timeline: %w", fs.ErrNotExist)}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: &mockPublisher{}}, "/nope.ndjson")
	require.Error(t, err)
	assert.Equal(t, workflows.ErrTypeMissing, appErrorType(err))
	assert.Equal(t, 1, src.calls)
}

func TestWildfireIngestWorkflow_TransientFetchErrorIsRetried(t *testing.T) {
	src := &mockSource{err: errors.New("connection reset")}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: &mockPublisher{}}, "https://example.test/fire.ndjson")
	require.Error(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestWildfireIngestWorkflow_RejectsChangedSource(t *testing.T) {
	changed := strings.Replace(timelineNDJSON, "129.33", "129.34", 1)
	src := &mockSource{payloads: [][]byte{[]byte(timelineNDJSON), []byte(changed)}}
	pub := &mockPublisher{}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: pub}, "/data/fire.ndjson")
	require.Error(t, err)
	assert.Equal(t, workflows.ErrTypeSourceChanged, appErrorType(err))
	assert.Empty(t, pub.published)
}

func TestWildfireIngestWorkflow_RequiresLocation(t *testing.T) {
	src := &mockSource{payloads: [][]byte{[]byte(timelineNDJSON)}}

	_, err := runWorkflow(t, &workflows.IngestActivities{Source: src, Events: &mockPublisher{}}, "")
	require.Error(t, err)
	assert.Equal(t, workflows.ErrTypeBadInput, appErrorType(err))
	assert.Zero(t, src.calls)
}

func TestValidateTimelineActivity(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	acts := &workflows.IngestActivities{
		Source: &mockSource{payloads: [][]byte{[]byte(timelineNDJSON)}},
		Events: &mockPublisher{},
	}
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.ValidateTimeline, "/data/fire.ndjson")
	require.NoError(t, err)

	var report workflows.TimelineReport
	require.NoError(t, val.Get(&report))
	assert.Equal(t, len(timelineNDJSON), report.Bytes)
	assert.Equal(t, 2, report.Summary.Frames)
	assert.Equal(t, 0.0, report.Summary.FirstMinute)
}
