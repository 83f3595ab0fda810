package preference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
)

var errBoom = errors.New("boom")

// callLog records persisted and native writes in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakePersister struct {
	mu     sync.Mutex
	values map[string]string
	sets   []string
	getErr error
	setErr error
	log    *callLog
}

func newFakePersister(initial string) *fakePersister {
	p := &fakePersister{values: make(map[string]string)}
	if initial != "" {
		p.values[DefaultKey] = initial
	}
	return p
}

func (p *fakePersister) Get(ctx context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return "", p.getErr
	}
	return p.values[key], nil
}

func (p *fakePersister) Set(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.log != nil {
		p.log.add("persist:" + value)
	}
	p.sets = append(p.sets, value)
	if p.setErr != nil {
		return p.setErr
	}
	p.values[key] = value
	return nil
}

func (p *fakePersister) value() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[DefaultKey]
}

func (p *fakePersister) setCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sets)
}

// fakeNative is a scriptable native.Module.
type fakeNative struct {
	mu        sync.Mutex
	available bool
	code      domain.FiatCode
	getErr    error
	setErr    error
	echo      bool // emit a change event from inside SetCurrency like the real module
	beforeSet func(code domain.FiatCode)
	calls     int
	setCalls  []domain.FiatCode
	listeners *event.Registry[domain.FiatCode]
	log       *callLog
}

func newFakeNative(available bool, code domain.FiatCode) *fakeNative {
	return &fakeNative{
		available: available,
		code:      code,
		listeners: event.NewRegistry[domain.FiatCode](),
	}
}

func (n *fakeNative) Available() bool { return n.available }

func (n *fakeNative) GetCurrency(ctx context.Context) (domain.FiatCode, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.getErr != nil {
		return "", n.getErr
	}
	return n.code, nil
}

func (n *fakeNative) SetCurrency(ctx context.Context, code domain.FiatCode) (domain.FiatCode, error) {
	n.mu.Lock()
	hook := n.beforeSet
	n.mu.Unlock()
	if hook != nil {
		hook(code)
	}

	n.mu.Lock()
	n.calls++
	n.setCalls = append(n.setCalls, code)
	if n.log != nil {
		n.log.add("native:" + string(code))
	}
	if n.setErr != nil {
		n.mu.Unlock()
		return "", n.setErr
	}
	n.code = code
	echo := n.echo
	n.mu.Unlock()

	if echo {
		n.listeners.Emit(code)
	}
	return code, nil
}

func (n *fakeNative) ToggleCurrency(ctx context.Context) (domain.FiatCode, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.code = n.code.Toggle()
	return n.code, nil
}

func (n *fakeNative) OpenSettingsPage(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.setErr != nil {
		return false, n.setErr
	}
	return n.available, nil
}

func (n *fakeNative) AddChangeListener(fn func(domain.FiatCode)) *event.Subscription {
	return n.listeners.Add(fn)
}

func (n *fakeNative) Close() error { return nil }

// emit simulates a change made from the native-only UI.
func (n *fakeNative) emit(code domain.FiatCode) {
	n.mu.Lock()
	n.code = code
	n.mu.Unlock()
	n.listeners.Emit(code)
}

func (n *fakeNative) current() domain.FiatCode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.code
}

func (n *fakeNative) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *fakeNative) sets() []domain.FiatCode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.FiatCode(nil), n.setCalls...)
}

// gatedPersister holds the first Set after arm until release is closed.
type gatedPersister struct {
	*fakePersister
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedPersister(initial string) *gatedPersister {
	return &gatedPersister{
		fakePersister: newFakePersister(initial),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedPersister) Set(ctx context.Context, key, value string) error {
	if g.armed.Load() {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.fakePersister.Set(ctx, key, value)
}

type fakeRates struct{}

func (fakeRates) Holdings() []domain.AssetHolding {
	return []domain.AssetHolding{
		{ID: 1, Name: "Bitcoin", Symbol: "BTC", Amount: 2.1},
		{ID: 2, Name: "Ethereum", Symbol: "ETH", Amount: 10.8},
		{ID: 3, Name: "Unlisted", Symbol: "UNL", Amount: 5},
	}
}

func (fakeRates) Rate(id int, code domain.FiatCode) string {
	rates := map[domain.FiatCode]map[int]string{
		domain.USD: {1: "60000", 2: "3350"},
		domain.HKD: {1: "468000", 2: "26130"},
	}
	if r, ok := rates[code][id]; ok {
		return r
	}
	return "0"
}
