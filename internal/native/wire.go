package native

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"wallet_go/internal/domain"
)

// Bridge methods and the change event name.
const (
	MethodGetCurrency      = "getCurrency"
	MethodSetCurrency      = "setCurrency"
	MethodToggleCurrency   = "toggleCurrency"
	MethodOpenSettingsPage = "openSettingsPage"

	EventCurrencyChange = "onCurrencyChange"
)

// Request is sent by the app side.
type Request struct {
	ID     string  `json:"id"`
	Method string  `json:"method"`
	Params *Params `json:"params,omitempty"`
}

// Params carries the currency argument of setCurrency.
type Params struct {
	Currency string `json:"currency"`
}

// Message is anything the native side sends: a response when ID is set,
// an event when Event is set.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IsEvent reports whether m is a pushed event rather than a response.
func (m Message) IsEvent() bool { return m.Event != "" }

// ParseChangePayload accepts "HKD" or {"currency":"HKD"}.
func ParseChangePayload(raw json.RawMessage) (domain.FiatCode, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.ParseFiatCode(s)
	}

	var obj struct {
		Currency *string `json:"currency"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Currency == nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedPayload, trimmed)
	}
	return domain.ParseFiatCode(*obj.Currency)
}
