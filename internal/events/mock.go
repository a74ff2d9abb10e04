// Package events declares the payloads published on the event bus.
package events

import (
	"time"

	"github.com/hanpama/graphmock/internal/response"
)

// MockStart is emitted before a mock operation is validated.
type MockStart struct {
	Query         string
	OperationName string
	// Fixture is set when a request or standing fixture applies.
	Fixture bool
}

// MockFinish is emitted after the response envelope is assembled.
// OperationType is empty when no operation could be selected.
type MockFinish struct {
	Query         string
	OperationName string
	OperationType string
	Fixture       bool
	Errors        []*response.Error
	Duration      time.Duration
}
