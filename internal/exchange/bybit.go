package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBybitURL is Bybit's public v5 API host.
const DefaultBybitURL = "https://api.bybit.com"

var errEmptyResponse = errors.New("empty response")

// Bybit fetches linear perpetual open interest from the v5 market API.
type Bybit struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
}

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string `json:"symbol"`
		List   []struct {
			OpenInterest string `json:"openInterest"`
			Timestamp    string `json:"timestamp"`
		} `json:"list"`
	} `json:"result"`
}

// NewBybit creates a Bybit adapter. An empty baseURL uses DefaultBybitURL.
func NewBybit(symbol, baseURL string) *Bybit {
	if baseURL == "" {
		baseURL = DefaultBybitURL
	}
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &Bybit{
		baseURL:    baseURL,
		symbol:     symbol,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

func (b *Bybit) Name() string { return "bybit" }

// FetchOpenInterest returns the latest 5-minute open-interest sample.
func (b *Bybit) FetchOpenInterest(ctx context.Context) (float64, error) {
	u, err := url.Parse(b.baseURL + "/v5/market/open-interest")
	if err != nil {
		return 0, fail(b.Name(), KindNetwork, fmt.Errorf("failed to parse URL: %w", err))
	}
	q := u.Query()
	q.Set("category", "linear")
	q.Set("symbol", b.symbol)
	q.Set("intervalTime", "5min")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fail(b.Name(), KindNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fail(b.Name(), KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fail(b.Name(), KindStatus, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
	}

	var payload bybitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fail(b.Name(), KindMalformed, fmt.Errorf("failed to decode response: %w", err))
	}
	if payload.RetCode != 0 {
		return 0, fail(b.Name(), KindStatus, fmt.Errorf("retCode %d: %s", payload.RetCode, payload.RetMsg))
	}
	if len(payload.Result.List) == 0 {
		return 0, fail(b.Name(), KindEmpty, errors.New("empty result.list"))
	}

	latest := payload.Result.List[len(payload.Result.List)-1]
	return parseOpenInterest(b.Name(), latest.OpenInterest)
}
