// Package wildfire loads precomputed wildfire spread frames and plays them back.
package wildfire

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

const maxLineBytes = 64 << 20

// Timeline is an immutable, time-sorted frame sequence.
type Timeline struct {
	Frames []domain.WildfireFrame
	Report LoadReport
}

// Digest is the hex SHA-256 of a raw timeline, used to pin validated content.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Summary describes the timeline. The cell size is estimated from the last,
// usually largest, frame. tl must hold at least one frame, as Load guarantees.
func (tl *Timeline) Summary() domain.TimelineSummary {
	first, last := tl.Frames[0], tl.Frames[len(tl.Frames)-1]
	return domain.TimelineSummary{
		Frames:         tl.Report.Frames,
		SkippedLines:   tl.Report.SkippedLines,
		DroppedFrames:  tl.Report.DroppedFrames,
		FirstMinute:    first.TimeMinutes,
		LastMinute:     last.TimeMinutes,
		CellSizeMeters: EstimateCellSize(last.BurnedCells),
	}
}

// LoadReport counts what was kept and what was discarded during a load.
type LoadReport struct {
	Frames        int `json:"frames"`
	SkippedLines  int `json:"skipped_lines"`
	DroppedFrames int `json:"dropped_frames"`
}

// looseFloat accepts numbers, numeric strings and null.
type looseFloat struct {
	v  float64
	ok bool
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.v, f.ok = v, true
	return nil
}

type rawCell struct {
	Lat looseFloat  `json:"lat"`
	Lon looseFloat  `json:"lon"`
	Row *looseFloat `json:"row"`
	Col *looseFloat `json:"col"`
}

type rawFrame struct {
	TimeMinutes       looseFloat     `json:"time_minutes"`
	BurnedCoordinates []rawCell      `json:"burned_coordinates"`
	IgnitionPoint     *rawCell       `json:"ignition_point"`
	TotalBurnedPixels looseFloat     `json:"total_burned_pixels"`
	Metadata          map[string]any `json:"metadata"`
}

// Load parses a JSON array of frame records or, failing that, newline
// delimited records. Lines that fail to parse are logged and skipped. Frames
// without usable burned cells are dropped. The result is sorted by time,
// keeping input order for equal times.
func Load(r io.Reader, logger *slog.Logger) (*Timeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read wildfire source: %w", err)
	}

	var (
		frames []domain.WildfireFrame
		report LoadReport
	)
	keep := func(raw rawFrame, where string) {
		f, ok := normalizeFrame(raw)
		if !ok {
			report.DroppedFrames++
			logger.Debug("dropping wildfire frame without burned cells", "at", where)
			return
		}
		frames = append(frames, f)
	}

	var array []json.RawMessage
	if err := json.Unmarshal(data, &array); err == nil {
		for i, elem := range array {
			var raw rawFrame
			if err := json.Unmarshal(elem, &raw); err != nil {
				report.SkippedLines++
				logger.Warn("skipping malformed wildfire record", "index", i, "error", err)
				continue
			}
			keep(raw, fmt.Sprintf("index %d", i))
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		line := 0
		for sc.Scan() {
			line++
			text := bytes.TrimSpace(sc.Bytes())
			if len(text) == 0 {
				continue
			}
			var raw rawFrame
			if err := json.Unmarshal(text, &raw); err != nil {
				report.SkippedLines++
				logger.Warn("skipping malformed wildfire line", "line", line, "error", err)
				continue
			}
			keep(raw, fmt.Sprintf("line %d", line))
		}
		if err := sc.Err(); err != nil {
			logger.Warn("wildfire source truncated", "line", line, "error", err)
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d malformed lines, %d empty frames", domain.ErrNoFramesParsed, report.SkippedLines, report.DroppedFrames)
	}

	sort.SliceStable(frames, func(i, j int) bool { return frames[i].TimeMinutes < frames[j].TimeMinutes })
	report.Frames = len(frames)

	return &Timeline{Frames: frames, Report: report}, nil
}

func normalizeFrame(raw rawFrame) (domain.WildfireFrame, bool) {
	cells := make([]domain.BurnedCell, 0, len(raw.BurnedCoordinates))
	for _, rc := range raw.BurnedCoordinates {
		c, ok := usableCoordinate(rc)
		if !ok {
			continue
		}
		cell := domain.BurnedCell{Coordinate: c}
		if rc.Row != nil && rc.Row.ok {
			row := int(rc.Row.v)
			cell.Row = &row
		}
		if rc.Col != nil && rc.Col.ok {
			col := int(rc.Col.v)
			cell.Col = &col
		}
		cells = append(cells, cell)
	}
	if len(cells) == 0 {
		return domain.WildfireFrame{}, false
	}

	t := raw.TimeMinutes.v
	if !raw.TimeMinutes.ok || t < 0 {
		t = 0
	}

	total := len(cells)
	if raw.TotalBurnedPixels.ok && raw.TotalBurnedPixels.v > 0 {
		total = int(raw.TotalBurnedPixels.v)
	}

	f := domain.WildfireFrame{
		TimeMinutes:      t,
		BurnedCells:      cells,
		TotalBurnedCount: total,
		Metadata:         raw.Metadata,
	}
	if raw.IgnitionPoint != nil {
		if c, ok := usableCoordinate(*raw.IgnitionPoint); ok {
			f.IgnitionPoint = &c
		}
	}
	return f, true
}

// usableCoordinate requires both components present, non-zero and in range.
func usableCoordinate(rc rawCell) (domain.Coordinate, bool) {
	if !rc.Lat.ok || !rc.Lon.ok || rc.Lat.v == 0 || rc.Lon.v == 0 {
		return domain.Coordinate{}, false
	}
	c := domain.Coordinate{Lat: rc.Lat.v, Lon: rc.Lon.v}
	if c.Validate() != nil {
		return domain.Coordinate{}, false
	}
	return c, true
}
