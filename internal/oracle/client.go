package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shadowTrader/internal/model"
)

// Client fetches pair prices from a dexscreener-shaped HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an oracle client for the given API base URL.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HTTPError reports a non-2xx oracle response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("oracle http %d", e.StatusCode)
	}
	return fmt.Sprintf("oracle http %d: %s", e.StatusCode, body)
}

type pairResponse struct {
	Pair struct {
		PriceNative string `json:"priceNative"`
	} `json:"pair"`
}

// PairPrice returns the native-token price per pool token for a pair.
// A missing, zero, or unparsable price fails with PriceUnavailable;
// transport failures fail with ProviderError.
func (c *Client) PairPrice(ctx context.Context, chain, pairAddress string) (float64, error) {
	u := fmt.Sprintf("%s/pairs/%s/%s", c.baseURL, chain, pairAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, model.Errf(model.KindProviderError, "build oracle request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, model.Errf(model.KindProviderError, "oracle request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, model.Errf(model.KindProviderError, "read oracle response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: body}
		return 0, model.Errf(model.KindProviderError, "%v", httpErr)
	}

	var parsed pairResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, model.Errf(model.KindPriceUnavailable, "decode oracle response: %v", err)
	}
	if parsed.Pair.PriceNative == "" {
		return 0, model.Errf(model.KindPriceUnavailable, "no price for pair %s", pairAddress)
	}

	price, err := strconv.ParseFloat(parsed.Pair.PriceNative, 64)
	if err != nil {
		return 0, model.Errf(model.KindPriceUnavailable, "bad price %q for pair %s", parsed.Pair.PriceNative, pairAddress)
	}
	if price <= 0 {
		return 0, model.Errf(model.KindPriceUnavailable, "non-positive price %v for pair %s", price, pairAddress)
	}

	return price, nil
}
