// Package native adapts the platform settings module that can hold and
// change the display currency on its own.
package native

import (
	"context"
	"errors"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
)

var (
	// ErrBridgeUnavailable is returned when the bridge is closed or its
	// circuit breaker is open.
	ErrBridgeUnavailable = errors.New("native bridge unavailable")
	// ErrNotConnected is returned when the bridge has no live connection.
	ErrNotConnected = errors.New("native bridge not connected")
	// ErrMalformedPayload marks a change event that carries no usable code.
	ErrMalformedPayload = errors.New("malformed currency payload")
)

// Module is the capability set of the native settings module.
// Availability is fixed for the life of the value.
type Module interface {
	Available() bool
	GetCurrency(ctx context.Context) (domain.FiatCode, error)
	SetCurrency(ctx context.Context, code domain.FiatCode) (domain.FiatCode, error)
	ToggleCurrency(ctx context.Context) (domain.FiatCode, error)
	OpenSettingsPage(ctx context.Context) (bool, error)
	AddChangeListener(fn func(domain.FiatCode)) *event.Subscription
	Close() error
}

// Mode names the implementation behind m for banners and screens.
func Mode(m Module) string {
	if m != nil && m.Available() {
		return "native"
	}
	return "fallback"
}

// Status is Mode plus the link health for modules that report one,
// e.g. "native (link OPEN)".
func Status(m Module) string {
	mode := Mode(m)
	if h, ok := m.(interface{ Health() string }); ok && m.Available() {
		return mode + " (link " + h.Health() + ")"
	}
	return mode
}
