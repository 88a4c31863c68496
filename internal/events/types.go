package events

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event.
type EventType string

const (
	// Execution lifecycle
	ExecutionStarted EventType = "execution.started"
	ExecutionFailed  EventType = "execution.failed"

	// Bought is the swap outcome notification: the buy promise was honored.
	Bought EventType = "execution.bought"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ExecutionStartedEvent is emitted when a buy execution begins.
type ExecutionStartedEvent struct {
	BaseEvent
	ExecutionID     string
	AssetFrom       common.Address
	AssetTo         common.Address
	MaxAmountToSwap *big.Int
	AmountToReceive *big.Int
	Augustus        common.Address
}

// BoughtEvent is emitted after a successful execution, carrying the amounts
// reconciled from balance deltas.
type BoughtEvent struct {
	BaseEvent
	ExecutionID  string
	AssetFrom    common.Address
	AssetTo      common.Address
	AmountSold   *big.Int
	AmountBought *big.Int
}

// ExecutionFailedEvent is emitted when an execution aborts.
type ExecutionFailedEvent struct {
	BaseEvent
	ExecutionID string
	AssetFrom   common.Address
	AssetTo     common.Address
	Err         error
}
