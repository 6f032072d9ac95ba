package shelter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// record is a loosely typed provider record. It never leaves this package.
type record map[string]any

// containerStrategy locates the list of records inside a decoded payload.
type containerStrategy struct {
	name string
	find func(v any) ([]any, bool)
}

// recordStrategy normalizes one record, reporting false when the record does
// not have this strategy's shape.
type recordStrategy struct {
	name    string
	extract func(r record, index int) (domain.Shelter, bool)
}

var containerStrategies = []containerStrategy{
	{"response.body.items.item", func(v any) ([]any, bool) { return listAt(v, "response", "body", "items", "item") }},
	{"body.items.item", func(v any) ([]any, bool) { return listAt(v, "body", "items", "item") }},
	{"items", func(v any) ([]any, bool) { return listAt(v, "items") }},
	{"data", func(v any) ([]any, bool) { return listAt(v, "data") }},
	{"array", func(v any) ([]any, bool) {
		arr, ok := v.([]any)
		return arr, ok
	}},
}

var recordStrategies = []recordStrategy{
	{"pohang", extractPohang},
	{"civil-defence", extractCivilDefence},
	{"generic", extractGeneric},
}

// ExtractResult is the outcome of normalizing a provider payload.
type ExtractResult struct {
	Shelters  []domain.Shelter
	Skipped   int
	Container string
}

// ExtractRecords decodes a provider payload and normalizes every record it
// can. Records no strategy accepts are skipped with a warning. It fails only
// when the payload has no recognizable container or zero records survive.
func ExtractRecords(payload []byte, logger *slog.Logger) (ExtractResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return ExtractResult{}, fmt.Errorf("%w: decode shelter payload: %v", domain.ErrMalformedRecord, err)
	}

	var items []any
	var container string
	for _, cs := range containerStrategies {
		if list, ok := cs.find(root); ok {
			items, container = list, cs.name
			break
		}
	}
	if container == "" {
		return ExtractResult{}, fmt.Errorf("%w: no shelter list found in payload", domain.ErrMalformedRecord)
	}

	res := ExtractResult{Container: container, Shelters: make([]domain.Shelter, 0, len(items))}
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			res.Skipped++
			logger.Warn("skipping shelter record", "index", i, "reason", "not an object")
			continue
		}
		s, ok := normalizeRecord(record(rec), i)
		if !ok {
			res.Skipped++
			logger.Warn("skipping shelter record", "index", i, "reason", "no strategy matched or invalid coordinates")
			continue
		}
		res.Shelters = append(res.Shelters, s)
	}

	if len(res.Shelters) == 0 {
		return res, fmt.Errorf("%w: 0 of %d shelter records usable", domain.ErrMalformedRecord, len(items))
	}
	return res, nil
}

func normalizeRecord(r record, index int) (domain.Shelter, bool) {
	for _, rs := range recordStrategies {
		s, ok := rs.extract(r, index)
		if !ok {
			continue
		}
		if s.Location.Validate() != nil || s.Location.Lat == 0 || s.Location.Lon == 0 {
			return domain.Shelter{}, false
		}
		return s, true
	}
	return domain.Shelter{}, false
}

// extractPohang handles the Pohang city open-data shape.
func extractPohang(r record, index int) (domain.Shelter, bool) {
	if !r.has("shlt_nm") {
		return domain.Shelter{}, false
	}
	lat, okLat := r.float("la")
	lon, okLon := r.float("lo")
	if !okLat || !okLon {
		return domain.Shelter{}, false
	}
	return domain.Shelter{
		ID:           r.stringOr(fmt.Sprintf("pohang_%d", index), "spm_row"),
		Name:         r.stringOr("", "shlt_nm"),
		Location:     domain.Coordinate{Lat: lat, Lon: lon},
		Address:      r.stringOr("", "addr"),
		CapacityText: r.stringOr("", "aceptnc_co"),
		AreaText:     r.stringOr("", "ar"),
		Category:     r.stringOr("", "shlt_ctgry_nm"),
	}, true
}

// extractCivilDefence handles the Korean-keyed civil defence shelter shape.
func extractCivilDefence(r record, index int) (domain.Shelter, bool) {
	if !r.has("민방위대피시설명칭") {
		return domain.Shelter{}, false
	}
	lat, okLat := r.float("위도")
	lon, okLon := r.float("경도")
	if !okLat || !okLon {
		return domain.Shelter{}, false
	}
	return domain.Shelter{
		ID:           r.stringOr(fmt.Sprintf("civil_%d", index), "연번"),
		Name:         r.stringOr("", "민방위대피시설명칭"),
		Location:     domain.Coordinate{Lat: lat, Lon: lon},
		Address:      r.stringOr("", "주소(도로명 주소)", "주소(지번 주소)"),
		CapacityText: r.stringOr("", "대피 가능인원(명)"),
		AreaText:     r.stringOr("", "대피가능면적(제곱미터)"),
		Category:     r.stringOr("", "시설종류"),
	}, true
}

// extractGeneric handles plain English keys in their common spellings.
func extractGeneric(r record, index int) (domain.Shelter, bool) {
	lat, okLat := r.float("lat", "latitude", "y")
	lon, okLon := r.float("lon", "lng", "longitude", "x")
	if !okLat || !okLon {
		return domain.Shelter{}, false
	}
	return domain.Shelter{
		ID:           r.stringOr(fmt.Sprintf("shelter_%d", index), "id"),
		Name:         r.stringOr("", "name", "title"),
		Location:     domain.Coordinate{Lat: lat, Lon: lon},
		Address:      r.stringOr("", "address", "addr"),
		CapacityText: r.stringOr("", "capacity"),
		AreaText:     r.stringOr("", "area"),
		Category:     r.stringOr("", "category", "type"),
	}, true
}

func (r record) has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// float returns the first key that holds a number or a numeric string.
func (r record) float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(r[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// stringOr returns the first non-empty value among keys, or def.
func (r record) stringOr(def string, keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// listAt walks path through nested objects. A single object at the end of
// the path is returned as a one-element list.
func listAt(v any, path ...string) ([]any, bool) {
	cur := v
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok || cur == nil {
			return nil, false
		}
	}
	switch x := cur.(type) {
	case []any:
		return x, true
	case map[string]any:
		return []any{x}, true
	}
	return nil, false
}
