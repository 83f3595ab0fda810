// Package ratetable serves the static holdings list and per-fiat rates.
package ratetable

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"wallet_go/internal/domain"
)

//go:embed data/*.json
var embedded embed.FS

const (
	currenciesFile = "currencies.json"
	missingRate    = "0"
)

type currenciesDoc struct {
	Currencies []domain.AssetHolding `json:"currencies"`
}

type ratesDoc struct {
	Rates []struct {
		domain.RateEntry
		FiatSymbol string `json:"fiat_symbol"`
	} `json:"rates"`
}

// Table is read-only after Load and safe for concurrent use.
type Table struct {
	holdings []domain.AssetHolding
	rates    map[domain.FiatCode]map[int]domain.RateEntry
}

// RateFile returns the file name holding the rates for code.
func RateFile(code domain.FiatCode) string {
	return "fiat_rate_" + strings.ToLower(string(code)) + ".json"
}

// Load reads the tables from dir, or from the embedded copy when dir is empty.
func Load(dir string) (*Table, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			return nil, err
		}
		return LoadFS(sub)
	}
	return LoadFS(os.DirFS(dir))
}

// MustDefault loads the embedded tables and panics if they are broken.
func MustDefault() *Table {
	t, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded rate table: %v", err))
	}
	return t
}

// LoadFS reads currencies.json plus one rate file per supported fiat.
// A missing rate file leaves that fiat empty, so every lookup gives "0".
func LoadFS(fsys fs.FS) (*Table, error) {
	data, err := fs.ReadFile(fsys, currenciesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", currenciesFile, err)
	}
	var cur currenciesDoc
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", currenciesFile, err)
	}

	t := &Table{
		holdings: cur.Currencies,
		rates:    make(map[domain.FiatCode]map[int]domain.RateEntry, len(domain.SupportedFiats)),
	}

	for _, code := range domain.SupportedFiats {
		byID := make(map[int]domain.RateEntry)
		t.rates[code] = byID

		name := RateFile(code)
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			slog.Warn("Rate file missing, all rates default to 0",
				slog.String("file", name),
				slog.Any("error", err))
			continue
		}
		var doc ratesDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for _, r := range doc.Rates {
			entry := r.RateEntry
			entry.FiatCode = code
			byID[entry.AssetID] = entry
		}
	}

	return t, nil
}

// Holdings returns a copy of the static holdings in file order.
func (t *Table) Holdings() []domain.AssetHolding {
	out := make([]domain.AssetHolding, len(t.holdings))
	copy(out, t.holdings)
	return out
}

// Rate returns the decimal rate of asset id in code, or "0" when absent.
func (t *Table) Rate(id int, code domain.FiatCode) string {
	entry, ok := t.rates[code][id]
	if !ok || strings.TrimSpace(entry.Rate) == "" {
		return missingRate
	}
	return entry.Rate
}

// Entries lists the rate entries of code ordered like Holdings.
func (t *Table) Entries(code domain.FiatCode) []domain.RateEntry {
	out := make([]domain.RateEntry, 0, len(t.holdings))
	for _, h := range t.holdings {
		if e, ok := t.rates[code][h.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}
