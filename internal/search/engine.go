// Package search provides a full-text index over stored insider trades
package search

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/mbergqvist/insynsapi/internal/models"
)

// tradeDoc is the indexed shape of one trade
type tradeDoc struct {
	CompanyName     string `json:"company_name"`
	InsiderName     string `json:"insider_name"`
	Position        string `json:"position"`
	TransactionType string `json:"transaction_type"`
	Symbol          string `json:"symbol"`
}

// Engine is an in-memory full-text index over insider trades. It is rebuilt
// from the store at startup and after every ingestion run.
type Engine struct {
	mu     sync.RWMutex
	index  bleve.Index
	trades map[string]*models.InsiderTradeModel
}

// NewEngine creates an empty search engine
func NewEngine() (*Engine, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %v", err)
	}
	return &Engine{
		index:  index,
		trades: make(map[string]*models.InsiderTradeModel),
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	tradeMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Store = false
	textFieldMapping.Index = true
	for _, field := range []string{"company_name", "insider_name", "position", "transaction_type", "symbol"} {
		tradeMapping.AddFieldMappingsAt(field, textFieldMapping)
	}

	indexMapping.AddDocumentMapping("_default", tradeMapping)
	return indexMapping
}

// Rebuild replaces the index contents with the given trades
func (e *Engine) Rebuild(trades []*models.InsiderTradeModel) error {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create search index: %v", err)
	}

	byID := make(map[string]*models.InsiderTradeModel, len(trades))
	batch := index.NewBatch()
	for _, trade := range trades {
		id := strconv.FormatUint(uint64(trade.ID), 10)
		byID[id] = trade
		doc := tradeDoc{
			CompanyName:     trade.CompanyName,
			InsiderName:     trade.InsiderName,
			Position:        trade.Position,
			TransactionType: trade.TransactionType,
			Symbol:          trade.Symbol,
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to add trade to batch: %v", err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %v", err)
	}

	e.mu.Lock()
	old := e.index
	e.index = index
	e.trades = byID
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Search returns the trades matching the query, best match first
func (e *Engine) Search(query string, limit int) ([]*models.InsiderTradeModel, error) {
	if limit <= 0 {
		limit = 25
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)
	// prefix queries are not analyzed, terms are indexed lowercase
	prefixQuery := bleve.NewPrefixQuery(strings.ToLower(query))
	searchQuery := bleve.NewDisjunctionQuery(matchQuery, prefixQuery)

	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Size = limit

	e.mu.RLock()
	defer e.mu.RUnlock()

	searchResults, err := e.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %v", err)
	}

	trades := make([]*models.InsiderTradeModel, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		if trade, ok := e.trades[hit.ID]; ok {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}
