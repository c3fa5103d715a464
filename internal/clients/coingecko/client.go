// Package coingecko provides a client for the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// DefaultSymbolIDs maps ticker symbols to CoinGecko coin ids. Symbols without
// an entry here cannot be priced and are silently skipped by GetPrices.
var DefaultSymbolIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
}

// Client is the CoinGecko API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	symbolIDs  map[string]string
	idSymbols  map[string]string
	log        zerolog.Logger
}

// NewClient creates a new CoinGecko client using the default symbol mapping.
func NewClient(log zerolog.Logger) *Client {
	idSymbols := make(map[string]string, len(DefaultSymbolIDs))
	for symbol, id := range DefaultSymbolIDs {
		idSymbols[id] = symbol
	}
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		symbolIDs: DefaultSymbolIDs,
		idSymbols: idSymbols,
		log:       log.With().Str("client", "coingecko").Logger(),
	}
}

// KnownSymbols returns every symbol the client can price. The classifier uses
// this set to route symbols to the crypto bucket.
func (c *Client) KnownSymbols() []string {
	symbols := make([]string, 0, len(c.symbolIDs))
	for symbol := range c.symbolIDs {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// simplePrice mirrors one coin entry of the simple/price payload.
type simplePrice struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// GetPrices fetches USD spot prices and 24h change for the given symbols in
// one batch request. Symbols with no id mapping are skipped - a gap, not an
// error. Output keys are ticker symbols, not provider ids.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	quotes := make(map[string]domain.Quote)

	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if id, ok := c.symbolIDs[strings.ToUpper(symbol)]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return quotes, nil
	}

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var result map[string]simplePrice
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse price response: %w", err)
	}

	now := time.Now()
	for id, price := range result {
		symbol, ok := c.idSymbols[id]
		if !ok {
			continue
		}
		quotes[symbol] = domain.Quote{
			Symbol:      symbol,
			Price:       price.USD,
			Change24h:   price.USD24hChange,
			Currency:    domain.CurrencyUSD,
			LastUpdated: now,
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(quotes)).
		Msg("Fetched crypto quotes")

	return quotes, nil
}
