package native

import (
	"errors"
	"testing"

	"wallet_go/internal/domain"
)

func TestParseChangePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    domain.FiatCode
		wantErr bool
	}{
		{"bare string", `"HKD"`, domain.HKD, false},
		{"object", `{"currency":"HKD"}`, domain.HKD, false},
		{"lower case object", `{"currency":"usd"}`, domain.USD, false},
		{"extra fields", `{"currency":"USD","source":"ui"}`, domain.USD, false},
		{"unknown code", `"EUR"`, "", true},
		{"number", `42`, "", true},
		{"array", `["HKD"]`, "", true},
		{"object without currency", `{"code":"HKD"}`, "", true},
		{"null", `null`, "", true},
		{"empty", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChangePayload([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseChangePayload_ErrorKinds(t *testing.T) {
	if _, err := ParseChangePayload([]byte(`{"x":1}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := ParseChangePayload([]byte(`"JPY"`)); !errors.Is(err, domain.ErrUnsupportedFiat) {
		t.Errorf("expected ErrUnsupportedFiat, got %v", err)
	}
}
