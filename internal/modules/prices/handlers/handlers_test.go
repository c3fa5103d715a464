package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/prices"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	result      prices.Result
	err         error
	lastSymbols []string
	forceCalled bool
	getOrCalled bool
}

func (f *fakeCache) GetOrRefresh(ctx context.Context, symbols []string) (prices.Result, error) {
	f.getOrCalled = true
	f.lastSymbols = symbols
	return f.result, f.err
}

func (f *fakeCache) ForceRefresh(ctx context.Context, symbols []string) (prices.Result, error) {
	f.forceCalled = true
	f.lastSymbols = symbols
	return f.result, f.err
}

type fakeSearcher struct {
	results []domain.SearchResult
	err     error
	query   string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.query = query
	return f.results, f.err
}

func testTable() *domain.PriceTable {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	return &domain.PriceTable{
		Prices: map[string]domain.Quote{
			"AAPL": {Symbol: "AAPL", Price: 230, Currency: domain.CurrencyUSD, LastUpdated: now},
		},
		UsdTry:      41.2,
		LastUpdated: now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}

func setupRouter(cache *fakeCache, searcher *fakeSearcher) *chi.Mux {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandler(cache, searcher, logger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleGetPrices(t *testing.T) {
	cache := &fakeCache{result: prices.Result{Table: testTable(), Cached: true}}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/prices?symbols=AAPL,BTC", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cache.getOrCalled)
	assert.Equal(t, []string{"AAPL", "BTC"}, cache.lastSymbols)

	var body struct {
		Data   domain.PriceTable `json:"data"`
		Cached bool              `json:"cached"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Cached)
	assert.Equal(t, 41.2, body.Data.UsdTry)
	assert.Contains(t, body.Data.Prices, "AAPL")
}

func TestHandleGetPricesNoSymbols(t *testing.T) {
	cache := &fakeCache{result: prices.Result{Table: testTable()}}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/prices", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, cache.lastSymbols, "empty query should request the full table")
}

func TestHandleGetPricesFailure(t *testing.T) {
	cache := &fakeCache{err: errors.New("all providers down")}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/prices?symbols=AAPL", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Failed to fetch prices", body["error"])
}

func TestHandleGetPricesStaleFlag(t *testing.T) {
	cache := &fakeCache{result: prices.Result{Table: testTable(), Cached: true, Stale: true}}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/prices", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["stale"])
}

func TestHandleRefreshPrices(t *testing.T) {
	cache := &fakeCache{result: prices.Result{Table: testTable()}}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh", strings.NewReader(`{"symbols":["AAPL"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cache.forceCalled)
	assert.Equal(t, []string{"AAPL"}, cache.lastSymbols)
}

func TestHandleRefreshPricesBadBody(t *testing.T) {
	cache := &fakeCache{}
	router := setupRouter(cache, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/prices/refresh", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, cache.forceCalled)
}

func TestHandleSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []domain.SearchResult{
		{Symbol: "AAPL", Name: "Apple Inc.", Kind: domain.KindEquity},
	}}
	router := setupRouter(&fakeCache{}, searcher)

	req := httptest.NewRequest(http.MethodGet, "/search?q=apple", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "apple", searcher.query)

	var body struct {
		Results []domain.SearchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "AAPL", body.Results[0].Symbol)
}

func TestHandleSearchFailureReturnsEmptyResults(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("upstream timeout")}
	router := setupRouter(&fakeCache{}, searcher)

	req := httptest.NewRequest(http.MethodGet, "/search?q=apple", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Search degrades gracefully: 200 with empty results and an error note.
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []domain.SearchResult `json:"results"`
		Error   string                `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Results)
	assert.Equal(t, "Search failed", body.Error)
}
