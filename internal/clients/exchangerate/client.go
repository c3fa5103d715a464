// Package exchangerate provides the USD to TRY exchange rate used for
// currency conversion during valuation.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// FallbackUsdTry is returned whenever the upstream rate cannot be fetched.
// Valuation must never see "no rate", so failures are masked by this constant
// rather than surfaced as gaps or errors.
const FallbackUsdTry = 34.5

// Client for exchangerate-api.com
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new exchangerate-api.com client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// GetUsdTry fetches the current USD to TRY rate. On any failure (network
// error, non-200 status, malformed payload, missing rate) it logs the cause
// and returns FallbackUsdTry.
func (c *Client) GetUsdTry(ctx context.Context) float64 {
	reqURL := fmt.Sprintf("%s/USD", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to build rate request, using fallback rate")
		return FallbackUsdTry
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Float64("fallback", FallbackUsdTry).Msg("Rate request failed, using fallback rate")
		return FallbackUsdTry
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Float64("fallback", FallbackUsdTry).Msg("Rate API error, using fallback rate")
		return FallbackUsdTry
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Warn().Err(err).Float64("fallback", FallbackUsdTry).Msg("Failed to parse rate response, using fallback rate")
		return FallbackUsdTry
	}

	rate, ok := result.Rates["TRY"]
	if !ok || rate <= 0 {
		c.log.Warn().Float64("fallback", FallbackUsdTry).Msg("TRY rate missing from response, using fallback rate")
		return FallbackUsdTry
	}

	c.log.Debug().Float64("rate", rate).Msg("Fetched USD/TRY rate")

	return rate
}
