package preference

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
)

func newReadyStore(t *testing.T, p Persister, n *fakeNative) *Store {
	t.Helper()
	s := New(p, n, fakeRates{}, Options{})
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("store not ready: %v", err)
	}
	return s
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		persisted   string
		available   bool
		nativeCode  domain.FiatCode
		nativeErr   error
		getErr      error
		want        domain.FiatCode
		wantStored  string
		wantSets    int
		wantPushes  []domain.FiatCode
		noNativeUse bool
	}{
		{
			name:        "persisted HKD, native unavailable",
			persisted:   "HKD",
			want:        domain.HKD,
			wantStored:  "HKD",
			noNativeUse: true,
		},
		{
			name:       "persisted empty, native reports HKD",
			available:  true,
			nativeCode: domain.HKD,
			want:       domain.HKD,
			wantStored: "HKD",
			wantSets:   1,
		},
		{
			name:       "persisted USD wins over native HKD",
			persisted:  "USD",
			available:  true,
			nativeCode: domain.HKD,
			want:       domain.USD,
			wantStored: "USD",
			wantPushes: []domain.FiatCode{domain.USD},
		},
		{
			name:       "persisted equals native",
			persisted:  "HKD",
			available:  true,
			nativeCode: domain.HKD,
			want:       domain.HKD,
			wantStored: "HKD",
		},
		{
			name:        "neither source has a value",
			want:        domain.USD,
			noNativeUse: true,
		},
		{
			name:       "native read fails, persisted adopted",
			persisted:  "HKD",
			available:  true,
			nativeErr:  errBoom,
			want:       domain.HKD,
			wantStored: "HKD",
		},
		{
			name:       "persisted read fails, native adopted",
			available:  true,
			nativeCode: domain.HKD,
			getErr:     errBoom,
			want:       domain.HKD,
			wantSets:   1,
		},
		{
			name:        "unknown persisted code treated as absent",
			persisted:   "EUR",
			want:        domain.USD,
			wantStored:  "EUR",
			noNativeUse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePersister(tt.persisted)
			p.getErr = tt.getErr
			n := newFakeNative(tt.available, tt.nativeCode)
			n.getErr = tt.nativeErr

			s := newReadyStore(t, p, n)

			if !s.Initialized() || s.State() != StateReady {
				t.Errorf("state = %s, want READY", s.State())
			}
			if got := s.Current(); got != tt.want {
				t.Errorf("Current() = %s, want %s", got, tt.want)
			}
			if tt.wantStored != "" && p.value() != tt.wantStored {
				t.Errorf("persisted = %q, want %q", p.value(), tt.wantStored)
			}
			if got := p.setCount(); got != tt.wantSets {
				t.Errorf("persisted writes = %d, want %d", got, tt.wantSets)
			}
			if got := n.sets(); !reflect.DeepEqual(got, tt.wantPushes) {
				t.Errorf("native SetCurrency calls = %v, want %v", got, tt.wantPushes)
			}
			if tt.noNativeUse && n.callCount() != 0 {
				t.Errorf("expected no native calls, got %d", n.callCount())
			}
		})
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	for _, start := range domain.SupportedFiats {
		t.Run(string(start), func(t *testing.T) {
			s := newReadyStore(t, newFakePersister(string(start)), newFakeNative(false, ""))

			first := s.Toggle()
			if first != start.Toggle() {
				t.Errorf("first toggle = %s, want %s", first, start.Toggle())
			}
			if s.Toggle() != start || s.Current() != start {
				t.Errorf("toggle twice = %s, want %s", s.Current(), start)
			}
		})
	}
}

func TestToggle_PersistsThenPushes(t *testing.T) {
	log := &callLog{}
	p := newFakePersister("")
	p.log = log
	n := newFakeNative(true, domain.USD)
	n.log = log

	s := newReadyStore(t, p, n)
	if got := s.Toggle(); got != domain.HKD {
		t.Fatalf("Toggle = %s, want HKD", got)
	}
	// Current is updated before any I/O completes
	if s.Current() != domain.HKD {
		t.Errorf("Current = %s right after Toggle", s.Current())
	}
	s.Close()

	// reconcile persists the native USD first
	want := []string{"persist:USD", "persist:HKD", "native:HKD"}
	if got := log.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
	if p.value() != "HKD" {
		t.Errorf("persisted = %q, want HKD", p.value())
	}
}

func TestToggle_FailuresKeepLocalValue(t *testing.T) {
	p := newFakePersister("")
	n := newFakeNative(true, domain.USD)

	s := newReadyStore(t, p, n)
	p.mu.Lock()
	p.setErr = errBoom
	p.mu.Unlock()
	n.mu.Lock()
	n.setErr = errBoom
	n.mu.Unlock()

	if s.Toggle() != domain.HKD {
		t.Fatal("Toggle did not switch")
	}
	s.Close()

	if s.Current() != domain.HKD {
		t.Errorf("Current = %s after failed writes, want HKD", s.Current())
	}
	if len(n.sets()) != 1 {
		t.Errorf("expected one native push attempt, got %v", n.sets())
	}
}

func TestSet(t *testing.T) {
	p := newFakePersister("")
	s := newReadyStore(t, p, newFakeNative(false, ""))

	if _, err := s.Set("EUR"); !errors.Is(err, domain.ErrUnsupportedFiat) {
		t.Errorf("expected ErrUnsupportedFiat, got %v", err)
	}
	got, err := s.Set(domain.HKD)
	if err != nil || got != domain.HKD {
		t.Fatalf("Set = %s, %v", got, err)
	}
	s.Close()
	if p.value() != "HKD" {
		t.Errorf("persisted = %q, want HKD", p.value())
	}
}

func TestNativeEvent_PersistsWithoutPushBack(t *testing.T) {
	p := newFakePersister("")
	n := newFakeNative(true, domain.USD)
	s := newReadyStore(t, p, n)

	n.emit(domain.HKD)

	if s.Current() != domain.HKD {
		t.Errorf("Current = %s, want HKD", s.Current())
	}
	s.Close()

	if p.value() != "HKD" {
		t.Errorf("persisted = %q, want HKD", p.value())
	}
	if pushes := n.sets(); len(pushes) != 0 {
		t.Errorf("native SetCurrency called %v, want none", pushes)
	}
}

func TestNativeEcho_Ignored(t *testing.T) {
	n := newFakeNative(true, domain.USD)
	n.echo = true
	s := newReadyStore(t, newFakePersister(""), n)

	var mu sync.Mutex
	var changes []event.CurrencyChanged
	s.Subscribe(func(ev event.CurrencyChanged) {
		mu.Lock()
		changes = append(changes, ev)
		mu.Unlock()
	})

	s.Toggle()
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0].Origin != event.OriginLocal {
		t.Errorf("expected one local change, got %+v", changes)
	}
}

func TestNativeChangeDuringPush_Converges(t *testing.T) {
	p := newFakePersister("")
	n := newFakeNative(true, domain.USD)
	s := newReadyStore(t, p, n)

	// the native UI switches back to USD while our HKD push is in flight,
	// then the module applies HKD and echoes it
	var tap sync.Once
	n.mu.Lock()
	n.echo = true
	n.beforeSet = func(code domain.FiatCode) {
		if code == domain.HKD {
			tap.Do(func() { n.emit(domain.USD) })
		}
	}
	n.mu.Unlock()

	if s.Toggle() != domain.HKD {
		t.Fatal("Toggle did not switch")
	}
	s.Close()

	if s.Current() != domain.USD || p.value() != "USD" || n.current() != domain.USD {
		t.Errorf("diverged: memory=%s persisted=%s native=%s",
			s.Current(), p.value(), n.current())
	}
	want := []domain.FiatCode{domain.HKD, domain.USD}
	if got := n.sets(); !reflect.DeepEqual(got, want) {
		t.Errorf("native pushes = %v, want %v", got, want)
	}
}

func TestClose_PersistsNativeChangeWhileDraining(t *testing.T) {
	p := newGatedPersister("USD")
	n := newFakeNative(true, domain.USD)
	s := newReadyStore(t, p, n)

	p.armed.Store(true)
	s.Toggle()
	<-p.entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	// wait for Close to queue behind the blocked write
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.seqr.mu.Lock()
		queued := len(s.seqr.queue)
		s.seqr.mu.Unlock()
		if queued > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Close did not start flushing")
		}
		time.Sleep(time.Millisecond)
	}

	n.emit(domain.USD)
	close(p.release)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	if s.Current() != domain.USD || p.value() != "USD" || n.current() != domain.USD {
		t.Errorf("diverged: memory=%s persisted=%s native=%s",
			s.Current(), p.value(), n.current())
	}
}

func TestSubscribe_Origins(t *testing.T) {
	n := newFakeNative(true, domain.HKD)
	block := make(chan struct{})
	p := &blockingPersister{fakePersister: newFakePersister(""), release: block}
	s := New(p, n, fakeRates{}, Options{})
	defer s.Close()

	got := make(chan event.CurrencyChanged, 8)
	sub := s.Subscribe(func(ev event.CurrencyChanged) { got <- ev })
	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitReady(ctx); err != nil {
		t.Fatal(err)
	}

	s.Toggle()
	n.emit(domain.HKD)

	wantOrigins := []event.Origin{event.OriginInit, event.OriginLocal, event.OriginNative}
	var lastSeq uint64
	for _, want := range wantOrigins {
		select {
		case ev := <-got:
			if ev.Origin != want {
				t.Errorf("origin = %s, want %s", ev.Origin, want)
			}
			if ev.GetSeq() <= lastSeq {
				t.Errorf("seq not increasing: %d after %d", ev.GetSeq(), lastSeq)
			}
			lastSeq = ev.GetSeq()
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", want)
		}
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Toggle()
	select {
	case ev := <-got:
		t.Errorf("event after unsubscribe: %+v", ev)
	default:
	}
}

func TestDerivedAssets(t *testing.T) {
	s := newReadyStore(t, newFakePersister(""), newFakeNative(false, ""))

	rows := s.DerivedAssets()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].FiatCode != domain.USD || rows[0].FiatRate != "60000" || rows[0].FiatValue != "126000" {
		t.Errorf("BTC row = %+v", rows[0])
	}
	if rows[2].FiatRate != "0" || rows[2].FiatValue != "0" {
		t.Errorf("missing rate row = %+v", rows[2])
	}

	s.Toggle()
	rows = s.DerivedAssets()
	if rows[0].FiatCode != domain.HKD || rows[0].FiatValue != "982800" {
		t.Errorf("BTC row under HKD = %+v", rows[0])
	}
}

func TestOpenNativeSettings(t *testing.T) {
	n := newFakeNative(true, domain.USD)
	s := newReadyStore(t, newFakePersister(""), n)

	if !s.OpenNativeSettings(context.Background()) {
		t.Error("expected true from available module")
	}
	n.mu.Lock()
	n.setErr = errBoom
	n.mu.Unlock()
	if s.OpenNativeSettings(context.Background()) {
		t.Error("expected false on failure")
	}
}

func TestClose(t *testing.T) {
	n := newFakeNative(true, domain.USD)
	s := newReadyStore(t, newFakePersister(""), n)

	if n.listeners.Len() != 1 {
		t.Fatalf("expected one native listener, got %d", n.listeners.Len())
	}
	s.Close()
	s.Close()
	if n.listeners.Len() != 0 {
		t.Errorf("listener not released, %d left", n.listeners.Len())
	}

	// memory still moves after Close, nothing is written
	if s.Toggle() != domain.HKD {
		t.Error("Toggle after Close should still switch in memory")
	}
}

func TestStateBeforeReady(t *testing.T) {
	block := make(chan struct{})
	p := &blockingPersister{fakePersister: newFakePersister("HKD"), release: block}
	s := New(p, newFakeNative(false, ""), fakeRates{}, Options{})
	defer s.Close()

	if s.State() != StateInitializing || s.Initialized() {
		t.Errorf("state = %s before reconciliation", s.State())
	}
	if s.Current() != domain.USD {
		t.Errorf("Current = %s before reconciliation, want default USD", s.Current())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitReady = %v, want deadline exceeded", err)
	}

	close(block)
	if err := s.WaitReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Current() != domain.HKD {
		t.Errorf("Current = %s after reconciliation, want HKD", s.Current())
	}
}

type blockingPersister struct {
	*fakePersister
	release chan struct{}
}

func (b *blockingPersister) Get(ctx context.Context, key string) (string, error) {
	<-b.release
	return b.fakePersister.Get(ctx, key)
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUninitialized: "UNINITIALIZED",
		StateInitializing:  "INITIALIZING",
		StateReady:         "READY",
		State(9):           "UNKNOWN",
	}
	for st, want := range tests {
		if st.String() != want {
			t.Errorf("%d.String() = %s, want %s", st, st.String(), want)
		}
	}
}
