// Package models contains the models for the Insyn API
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InsiderTradesTableName is the name of the table for insider trades
var InsiderTradesTableName = "insider_trades"

// StatusRevised marks a disclosure as a retraction of a previously
// published record rather than a new fact.
const StatusRevised = "Reviderad"

// InsiderTradeModel represents one disclosed insider transaction
type InsiderTradeModel struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	CompanyName     string          `gorm:"index" json:"company_name"`
	InsiderName     string          `json:"insider_name"`
	Position        string          `json:"position"`
	TransactionType string          `json:"transaction_type"`
	Shares          int             `json:"shares"`
	Price           decimal.Decimal `gorm:"type:numeric(18,4)" json:"price"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Isin            string          `json:"isin,omitempty"`
	Symbol          string          `json:"symbol,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	PublishingDate  time.Time       `gorm:"index" json:"publishing_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the InsiderTradeModel
func (InsiderTradeModel) TableName() string {
	return InsiderTradesTableName
}

// IsRevised reports whether the record is a retraction signal
func (t *InsiderTradeModel) IsRevised() bool {
	return strings.EqualFold(t.Status, StatusRevised)
}

// SameDisclosure reports whether two records describe the same disclosure.
// Status, ISIN and symbol are not part of the match.
func (t *InsiderTradeModel) SameDisclosure(o *InsiderTradeModel) bool {
	return t.CompanyName == o.CompanyName &&
		t.InsiderName == o.InsiderName &&
		t.Position == o.Position &&
		t.TransactionType == o.TransactionType &&
		t.Shares == o.Shares &&
		t.Price.Equal(o.Price) &&
		t.PublishingDate.Equal(o.PublishingDate)
}

// FindDuplicate returns the index of the first record in trades that is the
// same disclosure as trade, or -1 if there is none.
func FindDuplicate(trades []*InsiderTradeModel, trade *InsiderTradeModel) int {
	for i, t := range trades {
		if t.SameDisclosure(trade) {
			return i
		}
	}
	return -1
}

// TradeActivityModel is one row of the buy-activity aggregation
type TradeActivityModel struct {
	CompanyName  string `json:"company_name"`
	Transactions int    `json:"transactions"`
}

// DistinctPublishingDates returns the distinct publishing timestamps of trades
// in first-seen order.
func DistinctPublishingDates(trades []*InsiderTradeModel) []time.Time {
	seen := make(map[time.Time]struct{}, len(trades))
	dates := make([]time.Time, 0, len(trades))
	for _, t := range trades {
		key := t.PublishingDate.UTC()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, t.PublishingDate)
	}
	return dates
}
