package domain

import "time"

// BurnedCell is one burned grid cell. Row and Col are optional grid indices.
type BurnedCell struct {
	Coordinate
	Row *int `json:"row,omitempty"`
	Col *int `json:"col,omitempty"`
}

// WildfireFrame is one time-stamped snapshot of burned cells.
type WildfireFrame struct {
	TimeMinutes      float64        `json:"time_minutes"`
	BurnedCells      []BurnedCell   `json:"burned_cells"`
	IgnitionPoint    *Coordinate    `json:"ignition_point"`
	TotalBurnedCount int            `json:"total_burned_count"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// PlaybackState is the wildfire playback state machine state.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

// PlaybackSnapshot is pushed to listeners on every cursor or state change.
type PlaybackSnapshot struct {
	State      PlaybackState  `json:"state"`
	Index      int            `json:"index"`
	FrameCount int            `json:"frame_count"`
	Frame      *WildfireFrame `json:"frame,omitempty"`
}

// TimelineSummary describes a loaded wildfire timeline.
type TimelineSummary struct {
	Frames         int     `json:"frames"`
	SkippedLines   int     `json:"skipped_lines"`
	DroppedFrames  int     `json:"dropped_frames"`
	FirstMinute    float64 `json:"first_minute"`
	LastMinute     float64 `json:"last_minute"`
	CellSizeMeters float64 `json:"cell_size_meters"`
}

// TimelineIngested points API processes at a validated timeline source. The
// timeline itself stays at Location; SHA256 pins the validated content.
type TimelineIngested struct {
	Location   string          `json:"location"`
	SHA256     string          `json:"sha256"`
	Bytes      int             `json:"bytes"`
	Summary    TimelineSummary `json:"summary"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// TimelineEvent announces that a timeline was loaded into an API process.
type TimelineEvent struct {
	Origin   string          `json:"origin"`
	Summary  TimelineSummary `json:"summary"`
	LoadedAt time.Time       `json:"loaded_at"`
}
