// Package screen renders the assets and settings screens as text.
package screen

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"wallet_go/internal/domain"
	"wallet_go/pkg/format"
)

const rule = "────────────────────────────────────────"

// Screens holds what every screen shows regardless of state.
type Screens struct {
	WalletName string
	Version    string
}

// New returns the screens for one wallet.
func New(walletName, version string) *Screens {
	return &Screens{WalletName: walletName, Version: version}
}

// RenderAssets writes the assets list: the total in code, then one line per
// row with its abbreviated value and the held amount.
func (s *Screens) RenderAssets(w io.Writer, code domain.FiatCode, rows []domain.DisplayRow) error {
	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.FiatValue
	}
	total := format.FormatCurrencyValue(format.SumValues(values...))

	fmt.Fprintf(w, "%s\n%s\n", s.WalletName, rule)
	fmt.Fprintf(w, "Total Balance (%s)\n  %s %s\n%s\n", code, code, total, rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, r := range rows {
		fmt.Fprintf(tw, "[%s]\t%s\t%s %s\t%s %s\t\n",
			initial(r.Symbol),
			r.Name,
			code,
			format.FormatLargeNumber(r.FiatValue),
			formatAmount(r.Amount),
			r.Symbol,
		)
	}
	return tw.Flush()
}

// SettingsView is the state shown on the settings screen.
type SettingsView struct {
	Currency    domain.FiatCode
	NativeMode  string
	StorageMode string
	SavedAt     time.Time // zero when nothing is persisted
	Now         time.Time // zero means time.Now
}

// RenderSettings writes the settings screen.
func (s *Screens) RenderSettings(w io.Writer, v SettingsView) error {
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}

	saved := "never"
	if !v.SavedAt.IsZero() {
		saved = humanize.RelTime(v.SavedAt, now, "ago", "from now")
	}

	fmt.Fprintf(w, "Settings\n%s\n", rule)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Display currency\t%s\t(%s)\n", v.Currency, toggleHint(v.Currency))
	fmt.Fprintf(tw, "Native module\t%s\t\n", v.NativeMode)
	fmt.Fprintf(tw, "Storage\t%s\t\n", v.StorageMode)
	fmt.Fprintf(tw, "Last saved\t%s\t\n", saved)
	fmt.Fprintf(tw, "Version\t%s\t\n", s.Version)
	return tw.Flush()
}

func toggleHint(code domain.FiatCode) string {
	return "toggle for " + string(code.Toggle())
}

func initial(symbol string) string {
	if symbol == "" {
		return "?"
	}
	return strings.ToUpper(symbol[:1])
}

// formatAmount prints the held amount the way it was entered: no
// trailing zeros, grouping for large whole numbers.
func formatAmount(amount float64) string {
	return humanize.CommafWithDigits(amount, 8)
}
