package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context and id.
type HTTPStart struct {
	Request   *http.Request
	RequestID string
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request   *http.Request
	RequestID string
	Status    int
	Bytes     int
	Duration  time.Duration
}
