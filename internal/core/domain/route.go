package domain

import (
	"fmt"
	"strings"
)

// TravelMode is the way the traveler moves along a route.
type TravelMode string

const (
	ModeWalk  TravelMode = "walk"
	ModeDrive TravelMode = "drive"
)

// ParseTravelMode accepts "walk" or "drive" (case-insensitive).
func ParseTravelMode(s string) (TravelMode, error) {
	switch TravelMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWalk:
		return ModeWalk, nil
	case ModeDrive:
		return ModeDrive, nil
	}
	return "", fmt.Errorf("%w: travel mode %q, want walk or drive", ErrInvalidArgument, s)
}

// StepKind tags a route step.
type StepKind string

const (
	StepStart    StepKind = "start"
	StepWaypoint StepKind = "waypoint"
	StepEnd      StepKind = "end"
)

// Step is one instruction along a route.
type Step struct {
	Index           int        `json:"index"`
	Instruction     string     `json:"instruction"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	Coordinate      Coordinate `json:"coordinate"`
	Kind            StepKind   `json:"kind"`
}

// RouteSummary aggregates totals with display text.
type RouteSummary struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceText    string  `json:"distance_text"`
	DurationText    string  `json:"duration_text"`
}

// Route is the canonical route, whatever provider or fallback produced it.
// Steps[0] is always a start step and the last step is always an end step.
// Routes are shared through the route cache and must not be mutated.
type Route struct {
	Mode            TravelMode   `json:"mode"`
	Coordinates     []Coordinate `json:"coordinates"`
	Steps           []Step       `json:"steps"`
	Summary         RouteSummary `json:"summary"`
	Bounds          *Bounds      `json:"bounds"`
	EncodedPolyline string       `json:"encoded_polyline,omitempty"`
	Source          string       `json:"source"`
	Degraded        bool         `json:"degraded"`
	Notice          string       `json:"notice,omitempty"`
}
