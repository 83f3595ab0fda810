package domain

// AssetHolding is a static holding from the rate table. Never mutated.
type AssetHolding struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Color  string  `json:"color,omitempty"`
}

// RateEntry is the fiat rate of one asset, kept as a decimal string.
type RateEntry struct {
	AssetID  int      `json:"id"`
	Symbol   string   `json:"symbol"`
	FiatCode FiatCode `json:"-"`
	Rate     string   `json:"fiat_rate"`
}

// DisplayRow is a holding joined with its value in the active fiat.
// Computed on every read, never stored.
type DisplayRow struct {
	AssetHolding
	FiatCode  FiatCode `json:"fiat_code"`
	FiatRate  string   `json:"fiat_rate"`
	FiatValue string   `json:"fiat_value"`
}
