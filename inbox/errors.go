package inbox

import "errors"

var (
	// ErrSourceClosed is returned by Poll after Close.
	ErrSourceClosed = errors.New("inbox source closed")

	// ErrUnknownDrop is returned when settling a drop the source did not
	// deliver or has already settled.
	ErrUnknownDrop = errors.New("unknown drop")
)
