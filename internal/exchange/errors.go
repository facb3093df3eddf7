// Package exchange provides open-interest adapters for Binance and Bybit
// perpetual futures.
package exchange

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequestTimeout bounds every outbound request made by an adapter.
const RequestTimeout = 10 * time.Second

// DefaultSymbol is the instrument both adapters poll unless configured otherwise.
const DefaultSymbol = "BTCUSDT"

// Kind classifies why a fetch failed.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
	KindEmpty     Kind = "empty"
)

// FetchError is the only error an adapter returns.
type FetchError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s open interest fetch failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fail(source string, kind Kind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// parseOpenInterest converts an exchange-provided decimal string into a
// non-negative quantity.
func parseOpenInterest(source, raw string) (float64, error) {
	if raw == "" {
		return 0, fail(source, KindEmpty, fmt.Errorf("openInterest field is empty"))
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fail(source, KindMalformed, fmt.Errorf("failed to parse openInterest %q: %w", raw, err))
	}
	if d.IsNegative() {
		return 0, fail(source, KindMalformed, fmt.Errorf("negative openInterest %s", raw))
	}
	v, _ := d.Float64()
	return v, nil
}
