package service

import (
	"context"
	"strings"
	"sync"

	"github.com/mbergqvist/insynsapi/internal/models"
	"golang.org/x/sync/errgroup"
)

// TickerLookup resolves an ISIN to a ticker symbol. An empty string means the
// lookup failed or the ISIN is unknown; the resolver treats both the same way.
type TickerLookup interface {
	GetTickerByISIN(ctx context.Context, isin string) string
}

// SymbolService assigns a best-effort ticker symbol to new trades using
// run-scoped caches rebuilt from stored records plus an external lookup.
type SymbolService struct {
	lookup      TickerLookup
	lookupLimit int
}

// NewSymbolService creates a new symbol service
func NewSymbolService(lookup TickerLookup) *SymbolService {
	return &SymbolService{
		lookup:      lookup,
		lookupLimit: 4,
	}
}

// ResolveSymbols fills the symbol field of every new trade it can resolve.
// existingTrades is read-only and only seeds the caches. A symbol already
// present on a trade is authoritative and never overwritten. Trades that
// resolve nowhere keep an empty symbol, which is a valid terminal state.
//
// Lookups for distinct unknown ISINs run concurrently; each ISIN is looked up
// at most once per run. Only cancellation is returned as an error.
func (s *SymbolService) ResolveSymbols(ctx context.Context, newTrades, existingTrades []*models.InsiderTradeModel) error {
	// Run-scoped caches, rebuilt from the store on every run
	byCompany := make(map[string]string)
	byIsin := make(map[string]string)
	for _, t := range existingTrades {
		if t.Symbol == "" {
			continue
		}
		if t.CompanyName != "" {
			byCompany[companyKey(t.CompanyName)] = t.Symbol
		}
		if t.Isin != "" {
			byIsin[isinKey(t.Isin)] = t.Symbol
		}
	}

	// Feed-supplied symbols seed the caches before any lookup
	for _, t := range newTrades {
		if t.Symbol == "" {
			continue
		}
		if t.Isin != "" {
			if _, ok := byIsin[isinKey(t.Isin)]; !ok {
				byIsin[isinKey(t.Isin)] = t.Symbol
			}
		}
		if t.CompanyName != "" {
			if _, ok := byCompany[companyKey(t.CompanyName)]; !ok {
				byCompany[companyKey(t.CompanyName)] = t.Symbol
			}
		}
	}

	runMemo, err := s.lookupMissing(ctx, newTrades, byIsin)
	if err != nil {
		return err
	}

	for _, t := range newTrades {
		if t.Symbol != "" {
			continue
		}

		var resolved string
		if t.Isin != "" {
			key := isinKey(t.Isin)
			if sym, ok := byIsin[key]; ok {
				resolved = sym
			} else if sym, ok := runMemo[key]; ok {
				resolved = sym
				byIsin[key] = sym
			}
		}

		// Fallback: name cache
		if resolved == "" && t.CompanyName != "" {
			resolved = byCompany[companyKey(t.CompanyName)]
		}

		if resolved != "" {
			t.Symbol = resolved
			if t.CompanyName != "" {
				if _, ok := byCompany[companyKey(t.CompanyName)]; !ok {
					byCompany[companyKey(t.CompanyName)] = resolved
				}
			}
		}
	}

	return nil
}

// lookupMissing resolves every distinct ISIN not answered by the caches,
// at most once each, with a bounded number of concurrent lookups.
func (s *SymbolService) lookupMissing(ctx context.Context, newTrades []*models.InsiderTradeModel, byIsin map[string]string) (map[string]string, error) {
	var missing []string
	seen := make(map[string]struct{})
	for _, t := range newTrades {
		if t.Symbol != "" || t.Isin == "" {
			continue
		}
		key := isinKey(t.Isin)
		if _, ok := byIsin[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, t.Isin)
	}

	runMemo := make(map[string]string, len(missing))
	if len(missing) == 0 {
		return runMemo, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupLimit)
	for _, isin := range missing {
		isin := isin
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ticker := s.lookup.GetTickerByISIN(gctx, isin)
			if err := gctx.Err(); err != nil {
				return err
			}
			if ticker == "" {
				return nil
			}
			mu.Lock()
			runMemo[isinKey(isin)] = ticker
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runMemo, ctx.Err()
}

func isinKey(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

func companyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
