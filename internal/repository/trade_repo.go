package repository

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mbergqvist/insynsapi/internal/models"
	"gorm.io/gorm"
)

// TradeRepository is the database repository for insider trades
type TradeRepository struct {
	DB *gorm.DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{DB: db}
}

// GetTradesByPublishingDates returns all trades published at any of the given
// timestamps. The caller uses this to bound the reconciliation candidate set.
func (r *TradeRepository) GetTradesByPublishingDates(dates []time.Time) ([]*models.InsiderTradeModel, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	var trades []*models.InsiderTradeModel
	err := r.DB.Where("publishing_date = ANY(?)", pq.Array(dates)).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by publishing dates: %v", err)
	}
	return trades, nil
}

// CommitChanges persists the add-set and remove-set of one reconciliation run
// in a single transaction. Both are committed together or not at all.
func (r *TradeRepository) CommitChanges(toAdd, toRemove []*models.InsiderTradeModel) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if len(toAdd) > 0 {
			if err := tx.CreateInBatches(toAdd, 500).Error; err != nil {
				return fmt.Errorf("failed to insert trades: %v", err)
			}
		}
		if len(toRemove) > 0 {
			ids := make([]uint, 0, len(toRemove))
			for _, t := range toRemove {
				ids = append(ids, t.ID)
			}
			if err := tx.Delete(&models.InsiderTradeModel{}, ids).Error; err != nil {
				return fmt.Errorf("failed to delete trades: %v", err)
			}
		}
		return nil
	})
}

// GetAllTrades returns all trades, newest publishing date first
func (r *TradeRepository) GetAllTrades() ([]*models.InsiderTradeModel, error) {
	var trades []*models.InsiderTradeModel
	err := r.DB.Order("publishing_date DESC").Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %v", err)
	}
	return trades, nil
}

// GetTopTrades returns the trades with the highest transaction value
// (shares * price) published in [from, to)
func (r *TradeRepository) GetTopTrades(from, to time.Time, limit int) ([]*models.InsiderTradeModel, error) {
	var trades []*models.InsiderTradeModel
	err := r.DB.
		Where("publishing_date >= ? AND publishing_date < ?", from, to).
		Order("price * shares DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top trades: %v", err)
	}
	return trades, nil
}

// GetBuyActivity returns, per company, the number of buy transactions with a
// transaction date in the trailing day window, most active first
func (r *TradeRepository) GetBuyActivity(companyName string, days, limit int) ([]models.TradeActivityModel, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	query := r.DB.Model(&models.InsiderTradeModel{}).
		Select("company_name, COUNT(*) AS transactions").
		Where("transaction_type = ? AND transaction_date >= ?", "Förvärv", cutoff).
		Group("company_name").
		Order("transactions DESC")

	if companyName != "" {
		query = query.Where("company_name = ?", companyName)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var activity []models.TradeActivityModel
	if err := query.Scan(&activity).Error; err != nil {
		return nil, fmt.Errorf("failed to query buy activity: %v", err)
	}
	return activity, nil
}

// GetTradesRecordCount returns the number of records in the insider trades table
func (r *TradeRepository) GetTradesRecordCount() (int64, error) {
	var count int64
	err := r.DB.Table(models.InsiderTradesTableName).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get trades record count: %v", err)
	}
	return count, nil
}

// InsertIngestLog records the outcome of one ingestion run
func (r *TradeRepository) InsertIngestLog(entry *models.IngestLogModel) error {
	if err := r.DB.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert ingest log: %v", err)
	}
	return nil
}
