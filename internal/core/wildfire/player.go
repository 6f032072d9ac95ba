package wildfire

import (
	"sync"
	"time"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// DefaultFrameInterval is the playback speed when none is configured.
const DefaultFrameInterval = time.Second

// Player owns the playback cursor of one timeline. Timer advancement, Seek,
// Play and Pause are serialized by mu.
type Player struct {
	frames   []domain.WildfireFrame
	interval time.Duration
	notify   func(domain.PlaybackSnapshot)

	mu      sync.Mutex
	state   domain.PlaybackState
	cursor  int
	stop    chan struct{} // non-nil while a ticker goroutine is running
	closed  bool
	version uint64 // bumped on every emitted change

	emitMu  sync.Mutex
	emitted uint64
}

// NewPlayer starts Idle at frame 0. notify, if set, receives a snapshot after
// every state or cursor change. Calls are serialized and arrive in change
// order; a snapshot overtaken by a newer one is dropped. notify runs without
// the state lock held but must not call Play, Pause or Seek.
func NewPlayer(tl *Timeline, interval time.Duration, notify func(domain.PlaybackSnapshot)) *Player {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Player{
		frames:   tl.Frames,
		interval: interval,
		notify:   notify,
		state:    domain.PlaybackIdle,
	}
}

// Play starts advancing from the current frame. Playing from the last frame
// rewinds to the first.
func (p *Player) Play() domain.PlaybackSnapshot {
	p.mu.Lock()
	if p.closed || p.state == domain.PlaybackPlaying {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap
	}
	if p.cursor >= len(p.frames)-1 {
		p.cursor = 0
	}
	p.state = domain.PlaybackPlaying
	p.stop = make(chan struct{})
	go p.run(p.stop)
	snap, version := p.snapshotLocked(), p.bumpLocked()
	p.mu.Unlock()

	p.emit(snap, version)
	return snap
}

// Pause stops advancing. It is a no-op unless Playing.
func (p *Player) Pause() domain.PlaybackSnapshot {
	p.mu.Lock()
	if p.state != domain.PlaybackPlaying {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap
	}
	p.state = domain.PlaybackPaused
	p.stopTickerLocked()
	snap, version := p.snapshotLocked(), p.bumpLocked()
	p.mu.Unlock()

	p.emit(snap, version)
	return snap
}

// Seek moves the cursor, clamped to the frame range, without changing state.
func (p *Player) Seek(index int) domain.PlaybackSnapshot {
	p.mu.Lock()
	if index > len(p.frames)-1 {
		index = len(p.frames) - 1
	}
	if index < 0 {
		index = 0
	}
	p.cursor = index
	snap, version := p.snapshotLocked(), p.bumpLocked()
	p.mu.Unlock()

	p.emit(snap, version)
	return snap
}

// Snapshot returns the current state, cursor and frame.
func (p *Player) Snapshot() domain.PlaybackSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// State returns the playback state.
func (p *Player) State() domain.PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Index returns the cursor.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Current returns the frame under the cursor.
func (p *Player) Current() (domain.WildfireFrame, bool) {
	p.mu.Lock()
	i := p.cursor
	p.mu.Unlock()
	return p.Frame(i)
}

// Len is the number of frames.
func (p *Player) Len() int { return len(p.frames) }

// Frame returns frame i, or false when out of range.
func (p *Player) Frame(i int) (domain.WildfireFrame, bool) {
	if i < 0 || i >= len(p.frames) {
		return domain.WildfireFrame{}, false
	}
	return p.frames[i], true
}

// Close stops the ticker. A closed player ignores Play.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.state == domain.PlaybackPlaying {
		p.state = domain.PlaybackPaused
	}
	p.stopTickerLocked()
}

func (p *Player) run(stop chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !p.advance(stop) {
				return
			}
		}
	}
}

// advance moves one frame forward and pauses on the last frame. It reports
// whether the ticker should keep running.
func (p *Player) advance(stop chan struct{}) bool {
	p.mu.Lock()
	if p.stop != stop || p.state != domain.PlaybackPlaying {
		p.mu.Unlock()
		return false
	}
	last := len(p.frames) - 1
	if p.cursor < last {
		p.cursor++
	}
	playing := true
	if p.cursor >= last {
		p.state = domain.PlaybackPaused
		p.stop = nil
		playing = false
	}
	snap, version := p.snapshotLocked(), p.bumpLocked()
	p.mu.Unlock()

	p.emit(snap, version)
	return playing
}

func (p *Player) stopTickerLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *Player) snapshotLocked() domain.PlaybackSnapshot {
	snap := domain.PlaybackSnapshot{
		State:      p.state,
		Index:      p.cursor,
		FrameCount: len(p.frames),
	}
	if p.cursor < len(p.frames) {
		f := p.frames[p.cursor]
		snap.Frame = &f
	}
	return snap
}

func (p *Player) bumpLocked() uint64 {
	p.version++
	return p.version
}

func (p *Player) emit(snap domain.PlaybackSnapshot, version uint64) {
	if p.notify == nil {
		return
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	if version <= p.emitted {
		return
	}
	p.emitted = version
	p.notify(snap)
}
