package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbergqvist/insynsapi/internal/models"
	"github.com/mbergqvist/insynsapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// Outcome messages of one ingestion run
const (
	MsgNoData       = "No data provided."
	MsgNothingAdded = "No new data was added."
)

const (
	topTradesCacheKey = "insynsapi:trades:top"
	topTradesCacheTTL = 60 * time.Second
	topTradesLimit    = 10
)

// TradeStore is the persistence capability the trade service depends on
type TradeStore interface {
	GetTradesByPublishingDates(dates []time.Time) ([]*models.InsiderTradeModel, error)
	CommitChanges(toAdd, toRemove []*models.InsiderTradeModel) error
	GetAllTrades() ([]*models.InsiderTradeModel, error)
	GetTopTrades(from, to time.Time, limit int) ([]*models.InsiderTradeModel, error)
	GetBuyActivity(companyName string, days, limit int) ([]models.TradeActivityModel, error)
	InsertIngestLog(entry *models.IngestLogModel) error
}

// IngestResult is the outcome of one ingestion run
type IngestResult struct {
	Added   int
	Removed int
	Message string
}

// TradeService sequences symbol resolution, reconciliation and the
// persistence commit for insider trade batches, and serves reads.
type TradeService struct {
	store       TradeStore
	symbols     *SymbolService
	redisClient *redis.Client
}

// NewTradeService creates a new trade service
func NewTradeService(store TradeStore, symbols *SymbolService, redisClient *redis.Client) *TradeService {
	return &TradeService{
		store:       store,
		symbols:     symbols,
		redisClient: redisClient,
	}
}

// AddInsiderTrades ingests a batch of normalized trade records and returns
// the outcome message
func (s *TradeService) AddInsiderTrades(ctx context.Context, trades []*models.InsiderTradeModel) (string, error) {
	result, err := s.IngestTrades(ctx, trades)
	if err != nil {
		return "", err
	}
	return result.Message, nil
}

// IngestTrades resolves symbols for the batch, reconciles it against the
// stored records covering the same publishing dates and commits the net
// effect in a single transaction.
func (s *TradeService) IngestTrades(ctx context.Context, trades []*models.InsiderTradeModel) (*IngestResult, error) {
	if len(trades) == 0 {
		return &IngestResult{Message: MsgNoData}, nil
	}

	dates := models.DistinctPublishingDates(trades)
	existing, err := s.store.GetTradesByPublishingDates(dates)
	if err != nil {
		return nil, err
	}

	if err := s.symbols.ResolveSymbols(ctx, trades, existing); err != nil {
		return nil, err
	}

	res := ReconcileTrades(trades, existing)
	if res.Added == 0 && res.Removed == 0 {
		return &IngestResult{Message: MsgNothingAdded}, nil
	}

	if err := s.store.CommitChanges(res.ToAdd, res.ToRemove); err != nil {
		return nil, err
	}

	return &IngestResult{
		Added:   res.Added,
		Removed: res.Removed,
		Message: formatOutcome(res.Added, res.Removed),
	}, nil
}

func formatOutcome(added, removed int) string {
	switch {
	case added > 0 && removed > 0:
		return fmt.Sprintf("%d new trades added. %d trades removed.", added, removed)
	case added > 0:
		return fmt.Sprintf("%d new trades added.", added)
	case removed > 0:
		return fmt.Sprintf("%d trades removed.", removed)
	default:
		return MsgNothingAdded
	}
}

// GetInsiderTrades returns all stored trades, newest publishing date first
func (s *TradeService) GetInsiderTrades() ([]*models.InsiderTradeModel, error) {
	return s.store.GetAllTrades()
}

// GetTopInsiderTrades returns the highest-value trades published since
// yesterday. The response is cached in Redis for a short interval.
func (s *TradeService) GetTopInsiderTrades(ctx context.Context) ([]*models.InsiderTradeModel, error) {
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, topTradesCacheKey).Result()
		if err == nil {
			var trades []*models.InsiderTradeModel
			if err := json.Unmarshal([]byte(cached), &trades); err == nil {
				return trades, nil
			}
		}
	}

	today := time.Now().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	trades, err := s.store.GetTopTrades(yesterday, tomorrow, topTradesLimit)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(trades); err == nil {
			if err := s.redisClient.Set(ctx, topTradesCacheKey, payload, topTradesCacheTTL).Err(); err != nil {
				zaplogger.Warn("failed to cache top trades", zaplogger.Fields{"error": err.Error()})
			}
		}
	}

	return trades, nil
}

// GetBuyActivity returns the most active buy-side companies over the
// trailing day window
func (s *TradeService) GetBuyActivity(companyName string, days, limit int) ([]models.TradeActivityModel, error) {
	if days <= 0 {
		days = 365
	}
	return s.store.GetBuyActivity(companyName, days, limit)
}

// LogIngestRun records the outcome of one ingestion run in the database
func (s *TradeService) LogIngestRun(runID string, startedAt time.Time, result *IngestResult) {
	detail, err := json.Marshal(map[string]interface{}{
		"added":   result.Added,
		"removed": result.Removed,
	})
	if err != nil {
		detail = nil
	}

	entry := &models.IngestLogModel{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Added:      result.Added,
		Removed:    result.Removed,
		Message:    result.Message,
		Detail:     datatypes.JSON(detail),
	}
	if err := s.store.InsertIngestLog(entry); err != nil {
		zaplogger.Error("failed to record ingest run", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
	}
}
