// Package classify partitions requested ticker symbols into price-source
// buckets. Classification is a heuristic, not a guaranteed mapping: a 3-letter
// equity ticker will land in the fund bucket. That ambiguity is accepted
// behavior - replacing the heuristic with an instrument registry only requires
// a new Classifier implementation.
package classify

import "strings"

// Buckets holds the per-provider symbol partitions produced by a Classifier.
// Symbols are case-normalized to uppercase and the buckets are disjoint.
type Buckets struct {
	Equity     []string
	Crypto     []string
	Stablecoin []string
	Fund       []string
}

// Classifier routes symbols to price-source buckets.
type Classifier interface {
	Classify(symbols []string) Buckets
}

// DefaultStablecoins are symbols that always price at exactly 1 USD.
var DefaultStablecoins = []string{"USDT", "USDC", "BUSD", "DAI", "TUSD"}

// Heuristic is the default shape-based classifier.
//
// Precedence per symbol:
//  1. known stablecoin        -> Stablecoin (fixed 1 USD, no network call)
//  2. known crypto symbol     -> Crypto
//  3. short alphabetic code   -> Fund (TEFAS codes are <=3 letters, no feed)
//  4. anything else           -> Equity
type Heuristic struct {
	stablecoins map[string]bool
	crypto      map[string]bool
}

// NewHeuristic creates a classifier over the given crypto symbol set and the
// default stablecoin set.
func NewHeuristic(cryptoSymbols []string) *Heuristic {
	h := &Heuristic{
		stablecoins: make(map[string]bool, len(DefaultStablecoins)),
		crypto:      make(map[string]bool, len(cryptoSymbols)),
	}
	for _, s := range DefaultStablecoins {
		h.stablecoins[s] = true
	}
	for _, s := range cryptoSymbols {
		h.crypto[strings.ToUpper(s)] = true
	}
	return h
}

// Classify partitions symbols into buckets, preserving request order.
func (h *Heuristic) Classify(symbols []string) Buckets {
	var b Buckets
	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}

		switch {
		case h.stablecoins[symbol]:
			b.Stablecoin = append(b.Stablecoin, symbol)
		case h.crypto[symbol]:
			b.Crypto = append(b.Crypto, symbol)
		case isShortAlphabetic(symbol):
			b.Fund = append(b.Fund, symbol)
		default:
			b.Equity = append(b.Equity, symbol)
		}
	}
	return b
}

// isShortAlphabetic reports whether a symbol looks like a TEFAS fund code:
// at most 3 characters, letters only.
func isShortAlphabetic(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > 3 {
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
