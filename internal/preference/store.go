// Package preference keeps the display currency consistent across memory,
// the persisted store and the native settings module.
package preference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
	"wallet_go/internal/native"
	"wallet_go/pkg/format"
)

// DefaultKey is the persisted key of the currency preference.
const DefaultKey = "app_currency_setting"

// Persister is the key/value store the preference survives restarts in.
// Get returns "" and a nil error when key is absent.
type Persister interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// RateSource supplies holdings and their per-fiat rates.
type RateSource interface {
	Holdings() []domain.AssetHolding
	Rate(id int, code domain.FiatCode) string
}

// State is the reconciliation lifecycle of a Store.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Options configures New.
type Options struct {
	Key     string          // persisted key, DefaultKey when empty
	Default domain.FiatCode // value until reconciled, USD when empty
}

// Store is the single source of truth for the display currency.
//
// The in-memory value changes synchronously under mu. Every persisted or
// native write is queued on the sequencer and runs on its goroutine in
// submission order, so callers never wait on I/O. A write job stores the
// in-memory value current when it runs, which makes the three homes
// converge on the last value even when jobs queue up.
type Store struct {
	key       string
	persister Persister
	native    native.Module
	rates     RateSource

	mu       sync.Mutex
	current  domain.FiatCode
	seq      uint64
	inflight domain.FiatCode // value being pushed to native; its echo is ignored

	state     atomic.Int32
	ready     chan struct{}
	observers *event.Registry[event.CurrencyChanged]
	nativeSub *event.Subscription

	seqr      *sequencer
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates the store and starts reconciliation in the background.
// Use WaitReady to observe the reconciled value.
func New(p Persister, m native.Module, rates RateSource, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if !opts.Default.Valid() {
		opts.Default = domain.DefaultFiat
	}
	if m == nil {
		m = native.NewFallback()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		key:       opts.Key,
		persister: p,
		native:    m,
		rates:     rates,
		current:   opts.Default,
		ready:     make(chan struct{}),
		observers: event.NewRegistry[event.CurrencyChanged](),
		seqr:      newSequencer(),
		cancel:    cancel,
	}

	s.nativeSub = m.AddChangeListener(s.onNativeChange)

	s.state.Store(int32(StateInitializing))
	s.seqr.Submit(s.reconcile)
	go s.seqr.Run(ctx)

	return s
}

// State returns the lifecycle state.
func (s *Store) State() State { return State(s.state.Load()) }

// Initialized reports whether reconciliation has finished.
func (s *Store) Initialized() bool { return s.State() == StateReady }

// WaitReady blocks until reconciliation finished or ctx ends.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the active code. Before Ready it is the default.
func (s *Store) Current() domain.FiatCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// NativeAvailable reports whether a real native module is attached.
func (s *Store) NativeAvailable() bool { return s.native.Available() }

// NativeMode names the native implementation in use and, for the bridge,
// the health of its link.
func (s *Store) NativeMode() string { return native.Status(s.native) }

// Subscribe registers fn for every change of the in-memory value.
func (s *Store) Subscribe(fn func(event.CurrencyChanged)) *event.Subscription {
	return s.observers.Add(fn)
}

// Toggle switches to the other code and returns it. The switch is visible
// immediately; persistence and the native push follow asynchronously.
func (s *Store) Toggle() domain.FiatCode {
	return s.apply(domain.FiatCode.Toggle, event.OriginLocal, true)
}

// Set switches to code with the same contract as Toggle.
func (s *Store) Set(code domain.FiatCode) (domain.FiatCode, error) {
	if !code.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFiat, code)
	}
	return s.apply(fixed(code), event.OriginLocal, true), nil
}

// DerivedAssets joins every holding with its rate in the current code.
func (s *Store) DerivedAssets() []domain.DisplayRow {
	code := s.Current()
	holdings := s.rates.Holdings()

	rows := make([]domain.DisplayRow, 0, len(holdings))
	for _, h := range holdings {
		rate := s.rates.Rate(h.ID, code)
		rows = append(rows, domain.DisplayRow{
			AssetHolding: h,
			FiatCode:     code,
			FiatRate:     rate,
			FiatValue:    format.CalculateTotalValue(h.Amount, rate),
		})
	}
	return rows
}

// OpenNativeSettings asks the native module to show its settings page.
// Failures are logged and reported as false.
func (s *Store) OpenNativeSettings(ctx context.Context) bool {
	opened, err := s.native.OpenSettingsPage(ctx)
	if err != nil {
		slog.Warn("Failed to open native settings", slog.Any("error", err))
		return false
	}
	return opened
}

// Close finishes queued writes, releases the native listener and stops the
// sequencer. Idempotent.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		// native changes arriving while queued writes finish are still persisted
		s.seqr.Flush()
		s.nativeSub.Unsubscribe()
		s.seqr.Close()
		s.cancel()
		s.observers.Clear()
	})
}

func fixed(code domain.FiatCode) func(domain.FiatCode) domain.FiatCode {
	return func(domain.FiatCode) domain.FiatCode { return code }
}

// apply moves the in-memory value through next, notifies observers and
// queues the writes.
func (s *Store) apply(next func(domain.FiatCode) domain.FiatCode, origin event.Origin, pushNative bool) domain.FiatCode {
	s.mu.Lock()
	from := s.current
	code := next(from)
	s.current = code
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if from != code {
		s.observers.Emit(event.CurrencyChanged{
			BaseEvent: event.NewBase(seq),
			From:      from,
			To:        code,
			Origin:    origin,
		})
	}

	ok := s.seqr.Submit(func(ctx context.Context) {
		s.write(ctx, seq, pushNative)
	})
	if !ok {
		slog.Warn("Preference store closed, change not persisted",
			slog.String("currency", string(code)))
	}
	return code
}

// write runs on the sequencer. Persist first, then push to native.
func (s *Store) write(ctx context.Context, seq uint64, pushNative bool) {
	code := s.Current()

	if err := s.persister.Set(ctx, s.key, string(code)); err != nil {
		slog.Error("Failed to persist currency",
			slog.String("currency", string(code)),
			slog.Uint64("seq", seq),
			slog.Any("error", err))
	}

	if pushNative && s.native.Available() {
		s.pushNative(ctx, code)
	}
}

// pushNative sends code to the native module. When memory moved on while
// the push was in flight, e.g. through a native-UI change whose echo
// window overlapped ours, the current value is pushed again.
func (s *Store) pushNative(ctx context.Context, code domain.FiatCode) {
	s.mu.Lock()
	s.inflight = code
	s.mu.Unlock()

	if _, err := s.native.SetCurrency(ctx, code); err != nil {
		slog.Warn("Failed to push currency to native module",
			slog.String("currency", string(code)),
			slog.Any("error", err))
	}

	s.mu.Lock()
	s.inflight = ""
	current, seq := s.current, s.seq
	s.mu.Unlock()

	if current == code {
		return
	}
	slog.Info("Currency changed during native push, pushing again",
		slog.String("pushed", string(code)),
		slog.String("current", string(current)))
	if !s.seqr.Submit(func(ctx context.Context) { s.write(ctx, seq, true) }) {
		slog.Warn("Preference store closed, native left at pushed value",
			slog.String("currency", string(code)))
	}
}

// onNativeChange is the from-event path: memory and persistence follow the
// native side, nothing is pushed back to it.
func (s *Store) onNativeChange(code domain.FiatCode) {
	s.mu.Lock()
	echo := s.inflight != "" && s.inflight == code
	s.mu.Unlock()

	if echo {
		slog.Debug("Ignoring native echo of own push", slog.String("currency", string(code)))
		return
	}

	slog.Info("Native currency change received", slog.String("currency", string(code)))
	s.apply(fixed(code), event.OriginNative, false)
}

// reconcile is the first sequencer job. It settles the startup value from
// the persisted store and the native module; the persisted value wins when
// both exist and differ.
func (s *Store) reconcile(ctx context.Context) {
	defer s.markReady()

	persisted, hasPersisted := s.readPersisted(ctx)

	if s.native.Available() {
		nativeCode, err := s.native.GetCurrency(ctx)
		if err == nil {
			switch {
			case hasPersisted && persisted != nativeCode:
				slog.Info("Persisted currency differs from native, pushing persisted",
					slog.String("persisted", string(persisted)),
					slog.String("native", string(nativeCode)))
				s.adopt(persisted)
				s.pushNative(ctx, persisted)
			case hasPersisted:
				s.adopt(persisted)
			default:
				s.adopt(nativeCode)
				if err := s.persister.Set(ctx, s.key, string(nativeCode)); err != nil {
					slog.Error("Failed to persist native currency", slog.Any("error", err))
				}
			}
			return
		}
		slog.Warn("Failed to read native currency", slog.Any("error", err))
	}

	if hasPersisted {
		s.adopt(persisted)
	}
}

func (s *Store) readPersisted(ctx context.Context) (domain.FiatCode, bool) {
	raw, err := s.persister.Get(ctx, s.key)
	if err != nil {
		slog.Warn("Failed to read persisted currency", slog.Any("error", err))
		return "", false
	}
	if raw == "" {
		return "", false
	}
	code, err := domain.ParseFiatCode(raw)
	if err != nil {
		slog.Warn("Ignoring persisted currency", slog.Any("error", err))
		return "", false
	}
	return code, true
}

// adopt sets the reconciled value without queueing writes.
func (s *Store) adopt(code domain.FiatCode) {
	s.mu.Lock()
	from := s.current
	s.current = code
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if from != code {
		s.observers.Emit(event.CurrencyChanged{
			BaseEvent: event.NewBase(seq),
			From:      from,
			To:        code,
			Origin:    event.OriginInit,
		})
	}
}

func (s *Store) markReady() {
	s.state.Store(int32(StateReady))
	close(s.ready)
	slog.Info("Currency preference ready", slog.String("currency", string(s.Current())))
}
