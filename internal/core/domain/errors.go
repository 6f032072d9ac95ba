package domain

import "errors"

// Error taxonomy shared by the core packages. Callers classify with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrNoRouteFound        = errors.New("no route found")
	ErrNoFramesParsed      = errors.New("no wildfire frames parsed")
	ErrMalformedRecord     = errors.New("malformed external record")
	ErrNotFound            = errors.New("not found")
	ErrSourceChanged       = errors.New("timeline source changed since validation")
)
