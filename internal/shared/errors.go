package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrConfiguration = fmt.Errorf("configuration error")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Upstream catalog errors
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrUpstreamRejected    = fmt.Errorf("upstream rejected request")
	ErrStreamUnavailable   = fmt.Errorf("stream unavailable")
	ErrSignatureRejected   = fmt.Errorf("request signature rejected")

	// API and service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrNotFound           = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
