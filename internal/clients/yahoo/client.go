// Package yahoo provides a client for the Yahoo Finance quote and search
// endpoints. Quotes are fetched in a single batch request per refresh.
package yahoo

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

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	// Yahoo rejects requests without a browser-looking User-Agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client is the Yahoo Finance API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// quoteResponse mirrors the v7 quote endpoint payload. Only the fields we
// consume are declared - unexpected shapes fail decoding instead of being
// silently swallowed.
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string  `json:"symbol"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
}

// GetQuotes fetches quotes for the given symbols in one batch request.
// Symbols Yahoo does not report a price for are omitted from the result -
// a missing price is a gap, not a zero-value entry.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	quotes := make(map[string]domain.Quote)
	if len(symbols) == 0 {
		return quotes, nil
	}

	reqURL := fmt.Sprintf("%s/v7/finance/quote?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var result quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	now := time.Now()
	for _, q := range result.QuoteResponse.Result {
		if q.RegularMarketPrice == 0 {
			continue
		}
		quotes[q.Symbol] = domain.Quote{
			Symbol:      q.Symbol,
			Price:       q.RegularMarketPrice,
			Change24h:   q.RegularMarketChangePercent,
			Currency:    domain.CurrencyUSD,
			LastUpdated: now,
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(quotes)).
		Msg("Fetched equity quotes")

	return quotes, nil
}

// searchResponse mirrors the v1 search endpoint payload.
type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	QuoteType string `json:"quoteType"`
	Exchange  string `json:"exchange"`
}

// Search looks up instruments matching a free-text query. Results are
// filtered to equities, ETFs and cryptocurrencies. An empty query returns an
// empty result without a network call.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.SearchResult{}, nil
	}

	reqURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=10&newsCount=0&listsCount=0",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(result.Quotes))
	for _, q := range result.Quotes {
		kind, ok := searchKind(q.QuoteType)
		if !ok {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		if name == "" {
			name = q.Symbol
		}
		results = append(results, domain.SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Kind:     kind,
			Exchange: q.Exchange,
		})
	}

	c.log.Debug().Str("query", query).Int("results", len(results)).Msg("Symbol search completed")

	return results, nil
}

func searchKind(quoteType string) (domain.InstrumentKind, bool) {
	switch quoteType {
	case "EQUITY", "ETF":
		return domain.KindEquity, true
	case "CRYPTOCURRENCY":
		return domain.KindCrypto, true
	default:
		return "", false
	}
}
