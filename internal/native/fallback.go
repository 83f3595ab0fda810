package native

import (
	"context"
	"log/slog"
	"sync"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
)

// Fallback stands in when no native module exists. It keeps the value in
// memory only and never emits change events.
type Fallback struct {
	mu   sync.Mutex
	code domain.FiatCode
}

// NewFallback starts at the default fiat.
func NewFallback() *Fallback {
	return &Fallback{code: domain.DefaultFiat}
}

func logFallback(method string) {
	slog.Debug("Native module unavailable, using fallback", slog.String("method", method))
}

func (f *Fallback) Available() bool { return false }

func (f *Fallback) GetCurrency(ctx context.Context) (domain.FiatCode, error) {
	logFallback(MethodGetCurrency)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, nil
}

func (f *Fallback) SetCurrency(ctx context.Context, code domain.FiatCode) (domain.FiatCode, error) {
	logFallback(MethodSetCurrency)
	if !code.Valid() {
		return "", domain.ErrUnsupportedFiat
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = code
	return f.code, nil
}

func (f *Fallback) ToggleCurrency(ctx context.Context) (domain.FiatCode, error) {
	logFallback(MethodToggleCurrency)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = f.code.Toggle()
	return f.code, nil
}

func (f *Fallback) OpenSettingsPage(ctx context.Context) (bool, error) {
	logFallback(MethodOpenSettingsPage)
	return false, nil
}

func (f *Fallback) AddChangeListener(fn func(domain.FiatCode)) *event.Subscription {
	logFallback("addChangeListener")
	return event.NewSubscription(nil)
}

func (f *Fallback) Close() error { return nil }
