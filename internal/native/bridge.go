package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wallet_go/internal/domain"
	"wallet_go/internal/event"
	"wallet_go/internal/infra"
)

const bridgeID = "native-bridge"

// BridgeOptions tunes a Bridge. Zero values fall back to defaults.
type BridgeOptions struct {
	CallTimeout      time.Duration
	FailureThreshold int
}

type callResult struct {
	msg Message
	err error
}

// Bridge talks to the native module over a loopback websocket.
// Requests are matched to responses by id; onCurrencyChange events are
// fanned out to change listeners from the read goroutine.
type Bridge struct {
	url         string
	callTimeout time.Duration
	worker      *infra.BaseWSWorker
	breaker     *infra.CircuitBreaker
	listeners   *event.Registry[domain.FiatCode]

	mu      sync.Mutex
	pending map[string]chan callResult

	ready     chan struct{}
	readyOnce sync.Once
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewBridge creates a bridge to url. Call Start to connect.
func NewBridge(url string, opts BridgeOptions) *Bridge {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Second
	}
	cbCfg := infra.DefaultCircuitBreakerConfig(bridgeID)
	if opts.FailureThreshold > 0 {
		cbCfg.FailureThreshold = opts.FailureThreshold
	}

	b := &Bridge{
		url:         url,
		callTimeout: opts.CallTimeout,
		breaker:     infra.NewCircuitBreaker(cbCfg),
		listeners:   event.NewRegistry[domain.FiatCode](),
		pending:     make(map[string]chan callResult),
		ready:       make(chan struct{}),
	}
	b.worker = infra.NewBaseWSWorker(bridgeHandler{b})
	return b
}

// Start runs the connection loop until ctx ends or Close is called.
func (b *Bridge) Start(ctx context.Context) {
	b.worker.Start(ctx)
}

// WaitConnected blocks until the first connection is up.
func (b *Bridge) WaitConnected(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
	}
}

func (b *Bridge) Available() bool { return true }

// Health reports the circuit breaker state of the link.
func (b *Bridge) Health() string { return b.breaker.GetState().String() }

func (b *Bridge) GetCurrency(ctx context.Context) (domain.FiatCode, error) {
	raw, err := b.call(ctx, MethodGetCurrency, nil)
	if err != nil {
		return "", err
	}
	return decodeCode(raw)
}

func (b *Bridge) SetCurrency(ctx context.Context, code domain.FiatCode) (domain.FiatCode, error) {
	if !code.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFiat, code)
	}
	raw, err := b.call(ctx, MethodSetCurrency, &Params{Currency: string(code)})
	if err != nil {
		return "", err
	}
	return decodeCode(raw)
}

func (b *Bridge) ToggleCurrency(ctx context.Context) (domain.FiatCode, error) {
	raw, err := b.call(ctx, MethodToggleCurrency, nil)
	if err != nil {
		return "", err
	}
	return decodeCode(raw)
}

func (b *Bridge) OpenSettingsPage(ctx context.Context) (bool, error) {
	raw, err := b.call(ctx, MethodOpenSettingsPage, nil)
	if err != nil {
		return false, err
	}
	var opened bool
	if err := json.Unmarshal(raw, &opened); err != nil {
		return false, fmt.Errorf("bad %s result: %w", MethodOpenSettingsPage, err)
	}
	return opened, nil
}

// AddChangeListener registers fn for every currency change the native side
// reports. The subscription stays safe to release after Close.
func (b *Bridge) AddChangeListener(fn func(domain.FiatCode)) *event.Subscription {
	return b.listeners.Add(fn)
}

// Close stops the connection loop and fails in-flight calls. Idempotent.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.worker.Stop()
		b.failPending(ErrBridgeUnavailable)
		b.listeners.Clear()
	})
	return nil
}

func decodeCode(raw json.RawMessage) (domain.FiatCode, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("bad currency result %s: %w", string(raw), err)
	}
	return domain.ParseFiatCode(s)
}

// call performs one request/response round trip. Transport failures count
// against the circuit breaker; errors reported by the native side do not.
func (b *Bridge) call(ctx context.Context, method string, params *Params) (json.RawMessage, error) {
	if b.closed.Load() {
		return nil, ErrBridgeUnavailable
	}

	var msg Message
	err := b.breaker.Execute(func() error {
		var err error
		msg, err = b.roundTrip(ctx, method, params)
		return err
	})
	if errors.Is(err, infra.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %s", ErrBridgeUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	if msg.Error != "" {
		return nil, fmt.Errorf("native %s failed: %s", method, msg.Error)
	}
	return msg.Result, nil
}

func (b *Bridge) roundTrip(ctx context.Context, method string, params *Params) (Message, error) {
	req := Request{ID: uuid.NewString(), Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return Message{}, err
	}

	ch := make(chan callResult, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer b.forget(req.ID)

	if err := b.worker.Write(websocket.TextMessage, data); err != nil {
		if errors.Is(err, infra.ErrNotConnected) {
			return Message{}, ErrNotConnected
		}
		return Message{}, fmt.Errorf("failed to send %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-ctx.Done():
		return Message{}, fmt.Errorf("native %s: %w", method, ctx.Err())
	}
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Bridge) resolve(msg Message) {
	b.mu.Lock()
	ch, ok := b.pending[msg.ID]
	delete(b.pending, msg.ID)
	b.mu.Unlock()

	if !ok {
		slog.Debug("Response for unknown request dropped", slog.String("id", msg.ID))
		return
	}
	ch <- callResult{msg: msg}
}

func (b *Bridge) failPending(err error) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]chan callResult)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: err}
	}
}

func (b *Bridge) dispatch(msg Message) {
	if msg.Event != EventCurrencyChange {
		slog.Debug("Unknown native event ignored", slog.String("event", msg.Event))
		return
	}
	code, err := ParseChangePayload(msg.Payload)
	if err != nil {
		slog.Warn("Dropping native currency event", slog.Any("error", err))
		return
	}
	b.listeners.Emit(code)
}

// bridgeHandler keeps the worker callbacks off the Bridge API.
type bridgeHandler struct{ b *Bridge }

func (h bridgeHandler) GetURL() string { return h.b.url }
func (h bridgeHandler) ID() string     { return bridgeID }

func (h bridgeHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	// an idle peer only answers pings; each pong pushes the read deadline
	timeout := h.b.worker.ReadTimeout
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})
	// a fresh connection means the peer is back
	if h.b.breaker.GetState() != infra.StateClosed {
		h.b.breaker.Reset()
	}
	h.b.readyOnce.Do(func() { close(h.b.ready) })
	return nil
}

func (h bridgeHandler) OnMessage(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("Malformed bridge message", slog.Any("error", err))
		return
	}
	if msg.IsEvent() {
		h.b.dispatch(msg)
		return
	}
	h.b.resolve(msg)
}

func (h bridgeHandler) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

func (h bridgeHandler) OnDisconnect(err error) {
	h.b.failPending(fmt.Errorf("%w: %v", ErrNotConnected, err))
}
