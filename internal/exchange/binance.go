package exchange

import (
	"context"
	"net/http"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

// Binance fetches USDⓈ-M futures open interest.
type Binance struct {
	cli    *futures.Client
	symbol string
}

// NewBinance creates a Binance adapter. An empty baseURL keeps the
// library's production endpoint.
func NewBinance(symbol, baseURL string) *Binance {
	cli := futures.NewClient("", "")
	if baseURL != "" {
		cli.BaseURL = baseURL
	}
	cli.HTTPClient = &http.Client{Timeout: RequestTimeout}
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &Binance{cli: cli, symbol: symbol}
}

func (b *Binance) Name() string { return "binance" }

// FetchOpenInterest returns the current open interest in contracts.
func (b *Binance) FetchOpenInterest(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	res, err := b.cli.NewGetOpenInterestService().Symbol(b.symbol).Do(ctx)
	if err != nil {
		if common.IsAPIError(err) {
			return 0, fail(b.Name(), KindStatus, err)
		}
		return 0, fail(b.Name(), KindNetwork, err)
	}
	if res == nil {
		return 0, fail(b.Name(), KindEmpty, errEmptyResponse)
	}
	return parseOpenInterest(b.Name(), res.OpenInterest)
}
