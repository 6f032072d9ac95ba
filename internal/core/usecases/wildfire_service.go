package usecases

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/core/wildfire"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
)

// WildfireStatus is the playback view of the current timeline.
type WildfireStatus struct {
	Loaded   bool                     `json:"loaded"`
	Summary  *domain.TimelineSummary  `json:"summary,omitempty"`
	Playback *domain.PlaybackSnapshot `json:"playback,omitempty"`
}

// FrameView is one frame with its estimated cell half-width.
type FrameView struct {
	Index          int                  `json:"index"`
	Frame          domain.WildfireFrame `json:"frame"`
	CellSizeMeters float64              `json:"cell_size_meters"`
}

// WildfireService holds the current wildfire timeline and its player, and
// fans playback snapshots out to subscribers.
type WildfireService struct {
	interval time.Duration
	events   ports.EventPublisher
	origin   string

	mu      sync.RWMutex
	player  *wildfire.Player
	summary domain.TimelineSummary

	subsMu sync.Mutex
	subs   map[int]func(domain.PlaybackSnapshot)
	nextID int
}

// NewWildfireService creates a new WildfireService. origin names this
// process in published events. events may be nil.
func NewWildfireService(interval time.Duration, events ports.EventPublisher, origin string) *WildfireService {
	return &WildfireService{
		interval: interval,
		events:   events,
		origin:   origin,
		subs:     make(map[int]func(domain.PlaybackSnapshot)),
	}
}

// Load parses r and replaces the current timeline. The previous player is
// stopped. On error the current timeline is kept.
func (s *WildfireService) Load(ctx context.Context, r io.Reader) (domain.TimelineSummary, error) {
	tl, err := wildfire.Load(r, slog.Default())
	if err != nil {
		return domain.TimelineSummary{}, err
	}

	summary := tl.Summary()
	player := wildfire.NewPlayer(tl, s.interval, s.broadcast)

	s.mu.Lock()
	old := s.player
	s.player = player
	s.summary = summary
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	metrics.WildfireFramesLoaded.Set(float64(summary.Frames))
	metrics.WildfireLinesSkipped.Add(float64(summary.SkippedLines))
	slog.InfoContext(ctx, "wildfire timeline loaded",
		"frames", summary.Frames,
		"skipped_lines", summary.SkippedLines,
		"dropped_frames", summary.DroppedFrames,
	)

	if s.events != nil {
		ev := &domain.TimelineEvent{Origin: s.origin, Summary: summary, LoadedAt: time.Now().UTC()}
		if err := s.events.PublishTimelineLoaded(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publish wildfire timeline", "error", err)
		}
	}

	s.broadcast(player.Snapshot())
	return summary, nil
}

// LoadIngested fetches the timeline an ingestion event points at and loads it.
// Content whose digest differs from the event is rejected with
// domain.ErrSourceChanged and the current timeline is kept.
func (s *WildfireService) LoadIngested(ctx context.Context, src ports.WildfireSource, event *domain.TimelineIngested) (domain.TimelineSummary, error) {
	raw, err := src.FetchTimeline(ctx, event.Location)
	if err != nil {
		return domain.TimelineSummary{}, fmt.Errorf("fetch ingested timeline %s: %w", event.Location, err)
	}
	if got := wildfire.Digest(raw); got != event.SHA256 {
		return domain.TimelineSummary{}, fmt.Errorf("%w: %s has sha256 %s, event names %s", domain.ErrSourceChanged, event.Location, got, event.SHA256)
	}
	return s.Load(ctx, bytes.NewReader(raw))
}

// Status reports the current summary and playback state.
func (s *WildfireService) Status() WildfireStatus {
	s.mu.RLock()
	player, summary := s.player, s.summary
	s.mu.RUnlock()

	if player == nil {
		return WildfireStatus{}
	}
	snap := player.Snapshot()
	return WildfireStatus{Loaded: true, Summary: &summary, Playback: &snap}
}

// Frame returns frame i of the current timeline.
func (s *WildfireService) Frame(i int) (*FrameView, error) {
	player, err := s.current()
	if err != nil {
		return nil, err
	}
	f, ok := player.Frame(i)
	if !ok {
		return nil, fmt.Errorf("%w: frame %d of %d", domain.ErrNotFound, i, player.Len())
	}
	return &FrameView{Index: i, Frame: f, CellSizeMeters: wildfire.EstimateCellSize(f.BurnedCells)}, nil
}

// Play starts or resumes playback.
func (s *WildfireService) Play() (domain.PlaybackSnapshot, error) {
	player, err := s.current()
	if err != nil {
		return domain.PlaybackSnapshot{}, err
	}
	return player.Play(), nil
}

// Pause stops playback at the current frame.
func (s *WildfireService) Pause() (domain.PlaybackSnapshot, error) {
	player, err := s.current()
	if err != nil {
		return domain.PlaybackSnapshot{}, err
	}
	return player.Pause(), nil
}

// Seek moves the cursor, clamped to the timeline.
func (s *WildfireService) Seek(i int) (domain.PlaybackSnapshot, error) {
	player, err := s.current()
	if err != nil {
		return domain.PlaybackSnapshot{}, err
	}
	return player.Seek(i), nil
}

// Subscribe registers fn for playback snapshots. fn must not block.
func (s *WildfireService) Subscribe(fn func(domain.PlaybackSnapshot)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Close stops playback.
func (s *WildfireService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
	}
}

func (s *WildfireService) current() (*wildfire.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return nil, fmt.Errorf("%w: no wildfire timeline loaded", domain.ErrNotFound)
	}
	return s.player, nil
}

func (s *WildfireService) broadcast(snap domain.PlaybackSnapshot) {
	s.subsMu.Lock()
	fns := make([]func(domain.PlaybackSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
