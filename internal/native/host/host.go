// Package host simulates the platform side of the native settings module:
// it holds a currency, answers bridge requests and pushes onCurrencyChange
// events, and exposes a small HTTP surface that plays the native-only UI.
package host

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"wallet_go/internal/domain"
	"wallet_go/internal/infra"
	"wallet_go/internal/native"
)

// Event payload shapes.
const (
	ShapeObject = "object"
	ShapeString = "string"
)

const (
	writeTimeout = 2 * time.Second

	defaultUIBurst  = 10
	defaultUIPerSec = 5
)

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Host is safe for concurrent use.
type Host struct {
	mu       sync.Mutex
	currency domain.FiatCode
	shape    string
	opened   int
	clients  map[*client]struct{}

	uiLimiter *infra.RateLimiter
	upgrader  websocket.Upgrader
}

// New creates a host holding initial. shape selects the event payload form.
func New(initial domain.FiatCode, shape string) *Host {
	if !initial.Valid() {
		initial = domain.DefaultFiat
	}
	if shape != ShapeString {
		shape = ShapeObject
	}
	return &Host{
		currency:  initial,
		shape:     shape,
		clients:   make(map[*client]struct{}),
		uiLimiter: infra.NewRateLimiter(defaultUIBurst, defaultUIPerSec),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// WithUILimit throttles the native UI endpoints to burst changes refilled
// at perSecond. Non-positive values keep the defaults.
func (h *Host) WithUILimit(burst int, perSecond float64) *Host {
	if burst > 0 && perSecond > 0 {
		h.uiLimiter = infra.NewRateLimiter(burst, perSecond)
	}
	return h
}

// Currency returns the value the native side currently holds.
func (h *Host) Currency() domain.FiatCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currency
}

// SettingsOpened counts openSettingsPage calls.
func (h *Host) SettingsOpened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened
}

// Clients returns the number of connected bridges.
func (h *Host) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SetCurrency stores code and notifies every bridge, even when the value
// is unchanged.
func (h *Host) SetCurrency(code domain.FiatCode) (domain.FiatCode, error) {
	if !code.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFiat, code)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currency = code
	h.broadcastLocked()
	return code, nil
}

// ToggleCurrency flips the held value and notifies every bridge.
func (h *Host) ToggleCurrency() domain.FiatCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currency = h.currency.Toggle()
	h.broadcastLocked()
	return h.currency
}

// Close disconnects every bridge.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

// broadcastLocked runs under h.mu so events leave in change order.
func (h *Host) broadcastLocked() {
	var payload any = map[string]string{"currency": string(h.currency)}
	if h.shape == ShapeString {
		payload = string(h.currency)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode change event", slog.Any("error", err))
		return
	}
	msg := native.Message{Event: native.EventCurrencyChange, Payload: raw}

	for c := range h.clients {
		if err := c.send(msg); err != nil {
			slog.Warn("Failed to push change event", slog.Any("error", err))
		}
	}
	slog.Info("💱 Native currency changed", slog.String("currency", string(h.currency)))
}

func (h *Host) handleBridge(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Bridge upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("🔌 Bridge connected", slog.String("remote", r.RemoteAddr))

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
		slog.Info("Bridge disconnected", slog.String("remote", r.RemoteAddr))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				slog.Debug("Bridge read ended", slog.Any("error", err))
			}
			return
		}

		var req native.Request
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Warn("Malformed bridge request", slog.Any("error", err))
			continue
		}
		// events for this request are sent before its response
		if err := c.send(h.handle(req)); err != nil {
			slog.Warn("Failed to send bridge response", slog.Any("error", err))
			return
		}
	}
}

func (h *Host) handle(req native.Request) native.Message {
	resp := native.Message{ID: req.ID}

	var result any
	switch req.Method {
	case native.MethodGetCurrency:
		result = h.Currency()
	case native.MethodSetCurrency:
		if req.Params == nil {
			resp.Error = "missing currency"
			return resp
		}
		code, err := domain.ParseFiatCode(req.Params.Currency)
		if err == nil {
			code, err = h.SetCurrency(code)
		}
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		result = code
	case native.MethodToggleCurrency:
		result = h.ToggleCurrency()
	case native.MethodOpenSettingsPage:
		h.mu.Lock()
		h.opened++
		h.mu.Unlock()
		result = true
	default:
		resp.Error = "unknown method: " + req.Method
		return resp
	}

	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = raw
	return resp
}
