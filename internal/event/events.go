package event

import (
	"time"

	"wallet_go/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvCurrencyChanged Type = iota + 1
	EvNativeCurrencyChanged
)

// Origin records which surface caused a preference change.
type Origin string

const (
	OriginInit   Origin = "init"   // startup reconciliation
	OriginLocal  Origin = "local"  // Toggle/Set on the store
	OriginNative Origin = "native" // native module change notification
)

// Event is the interface for all preference events.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"` // Unix micro
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

// NewBase stamps seq with the current time.
func NewBase(seq uint64) BaseEvent {
	return BaseEvent{Seq: seq, Ts: time.Now().UnixMicro()}
}

// CurrencyChanged is emitted by the preference store after the in-memory
// value changes.
type CurrencyChanged struct {
	BaseEvent
	From   domain.FiatCode `json:"from"`
	To     domain.FiatCode `json:"to"`
	Origin Origin          `json:"origin"`
}

func (e CurrencyChanged) GetType() Type { return EvCurrencyChanged }

// NativeCurrencyChanged is a change reported by the native module.
type NativeCurrencyChanged struct {
	BaseEvent
	Code domain.FiatCode `json:"currency"`
}

func (e NativeCurrencyChanged) GetType() Type { return EvNativeCurrencyChanged }
