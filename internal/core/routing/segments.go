package routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// SegmentKind distinguishes path geometry from point annotations.
type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentPoint
)

// Segment is one provider path piece or point annotation, already converted to
// strict coordinates. Tag is empty for untagged points.
type Segment struct {
	Index           int
	Kind            SegmentKind
	Coordinates     []domain.Coordinate
	DistanceMeters  float64
	DurationSeconds float64
	Tag             domain.StepKind
	Instruction     string
}

// payloadStrategy converts one provider payload shape into segments. matched
// is false when the payload does not have this shape.
type payloadStrategy struct {
	name  string
	parse func(raw map[string]json.RawMessage) (segs []Segment, matched bool, err error)
}

var payloadStrategies = []payloadStrategy{
	{"feature-collection", parseFeatureCollection},
	{"wrapped", parseWrapped},
	{"legs", parseLegs},
}

// ParseSegments tries each payload strategy in order. It returns
// domain.ErrProviderUnavailable when no strategy recognizes the payload.
func ParseSegments(payload []byte) ([]Segment, string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, "", fmt.Errorf("%w: route payload is not a JSON object: %v", domain.ErrProviderUnavailable, err)
	}
	for _, s := range payloadStrategies {
		segs, ok, err := s.parse(raw)
		if err != nil {
			return nil, s.name, fmt.Errorf("%w: %s payload: %v", domain.ErrProviderUnavailable, s.name, err)
		}
		if ok {
			return segs, s.name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: unrecognized route payload shape", domain.ErrProviderUnavailable)
}

// ---- GeoJSON FeatureCollection (TMAP pedestrian and car APIs) ----

type feature struct {
	Geometry struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Index       *int        `json:"index"`
		PointType   string      `json:"pointType"`
		Description string      `json:"description"`
		Distance    json.Number `json:"distance"`
		Time        json.Number `json:"time"`
	} `json:"properties"`
}

func parseFeatureCollection(raw map[string]json.RawMessage) ([]Segment, bool, error) {
	featuresRaw, ok := raw["features"]
	if !ok {
		return nil, false, nil
	}
	var features []feature
	if err := decodeNumbers(featuresRaw, &features); err != nil {
		return nil, true, err
	}

	segs := make([]Segment, 0, len(features))
	for i, f := range features {
		idx := i
		if f.Properties.Index != nil {
			idx = *f.Properties.Index
		}
		seg := Segment{
			Index:           idx,
			DistanceMeters:  numberOrZero(f.Properties.Distance),
			DurationSeconds: numberOrZero(f.Properties.Time),
			Instruction:     f.Properties.Description,
		}

		switch f.Geometry.Type {
		case "LineString":
			var pairs [][]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &pairs); err != nil {
				return nil, true, fmt.Errorf("feature %d coordinates: %w", i, err)
			}
			seg.Kind = SegmentLine
			seg.Coordinates = lonLatPairs(pairs)
		case "Point":
			var pair []float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &pair); err != nil {
				return nil, true, fmt.Errorf("feature %d coordinates: %w", i, err)
			}
			seg.Kind = SegmentPoint
			seg.Coordinates = lonLatPairs([][]float64{pair})
			seg.Tag = pointTag(f.Properties.PointType, f.Properties.Description)
		default:
			continue
		}
		segs = append(segs, seg)
	}
	return segs, true, nil
}

// pointTag maps TMAP point types. Untagged points without a description are
// not steps.
func pointTag(pointType, description string) domain.StepKind {
	switch strings.ToUpper(strings.TrimSpace(pointType)) {
	case "SP", "S":
		return domain.StepStart
	case "EP", "E":
		return domain.StepEnd
	}
	if description != "" {
		return domain.StepWaypoint
	}
	return ""
}

// ---- {success, data} envelope around a FeatureCollection ----

func parseWrapped(raw map[string]json.RawMessage) ([]Segment, bool, error) {
	for _, key := range []string{"data", "result"} {
		inner, ok := raw[key]
		if !ok {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(inner, &obj); err != nil {
			continue
		}
		if segs, ok, err := parseFeatureCollection(obj); ok || err != nil {
			return segs, ok, err
		}
	}
	return nil, false, nil
}

// ---- routes[0].legs[] with encoded polylines or [lon, lat] pairs ----

type leg struct {
	Index           *int        `json:"index"`
	Polyline        string      `json:"polyline"`
	Coordinates     [][]float64 `json:"coordinates"`
	DistanceMeters  json.Number `json:"distanceMeters"`
	DurationSeconds json.Number `json:"durationSeconds"`
	Instruction     string      `json:"instruction"`
}

func parseLegs(raw map[string]json.RawMessage) ([]Segment, bool, error) {
	routesRaw, ok := raw["routes"]
	if !ok {
		return nil, false, nil
	}
	var routes []struct {
		Legs []leg `json:"legs"`
	}
	if err := decodeNumbers(routesRaw, &routes); err != nil {
		return nil, true, err
	}
	if len(routes) == 0 {
		return nil, true, nil
	}

	segs := make([]Segment, 0, len(routes[0].Legs))
	for i, l := range routes[0].Legs {
		idx := i
		if l.Index != nil {
			idx = *l.Index
		}
		seg := Segment{
			Index:           idx,
			Kind:            SegmentLine,
			DistanceMeters:  numberOrZero(l.DistanceMeters),
			DurationSeconds: numberOrZero(l.DurationSeconds),
			Instruction:     l.Instruction,
		}
		switch {
		case l.Polyline != "":
			coords, _, err := polyline.DecodeCoords([]byte(l.Polyline))
			if err != nil {
				return nil, true, fmt.Errorf("leg %d polyline: %w", i, err)
			}
			for _, c := range coords {
				seg.Coordinates = append(seg.Coordinates, domain.Coordinate{Lat: c[0], Lon: c[1]})
			}
		default:
			seg.Coordinates = lonLatPairs(l.Coordinates)
		}
		segs = append(segs, seg)
	}
	return segs, true, nil
}

// lonLatPairs converts GeoJSON-ordered pairs, dropping malformed ones.
func lonLatPairs(pairs [][]float64) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		c := domain.Coordinate{Lat: p[1], Lon: p[0]}
		if c.Validate() != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func numberOrZero(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0
	}
	return f
}
