package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mbergqvist/insynsapi/internal/models"
	"github.com/mbergqvist/insynsapi/pkg/utils/zaplogger"
	"github.com/shopspring/decimal"
)

// Transaction categories that are not of interest: loans, pledges, dividends,
// exercises, exchanges, inheritance, division of property and conversions.
var excludedTransactionTypes = map[string]struct{}{
	"Lån mottaget":          {},
	"Lån utlåning":          {},
	"Lån återgång ökning":   {},
	"Lån återgång minskning": {},
	"Utdelning lämnad":      {},
	"Lösen ökning":          {},
	"Lösen minskning":       {},
	"Utbyte ökning":         {},
	"Utbyte minskning":      {},
	"Pantsättning":          {},
	"Bodelning ökning":      {},
	"Bodelning minskning":   {},
	"Arv mottagen":          {},
	"Konvertering ökning":   {},
}

var (
	publSuffixRegex  = regexp.MustCompile(`(?i)\s*\(publ\)`)
	abSuffixRegex    = regexp.MustCompile(`(?i)\s*\bAB\b`)
	internalTxPrefix = regexp.MustCompile(`^Interntransaktion\s*[–-]\s*`)
)

// FetchService downloads the insider disclosure feed and normalizes its rows
// into insider trade records
type FetchService struct {
	feedURL    string
	httpClient *http.Client
}

// NewFetchService creates a new fetch service for the given feed URL
func NewFetchService(feedURL string) *FetchService {
	return &FetchService{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchInsiderTrades downloads the disclosures published in [from, to] and
// returns them as normalized trade records
func (s *FetchService) FetchInsiderTrades(ctx context.Context, from, to time.Time) ([]*models.InsiderTradeModel, error) {
	feedURL, err := s.buildFeedURL(from, to)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return ParseTrades(resp.Body)
}

// buildFeedURL builds the export query for a publishing date window
func (s *FetchService) buildFeedURL(from, to time.Time) (string, error) {
	u, err := url.Parse(s.feedURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL: %v", err)
	}

	q := u.Query()
	q.Set("SearchFunctionType", "Insyn")
	q.Set("Publiceringsdatum.From", from.Format("2006-01-02"))
	q.Set("Publiceringsdatum.To", to.Format("2006-01-02"))
	q.Set("button", "export")
	q.Set("Page", "1")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ParseTrades decodes the semicolon-delimited feed export into normalized
// trade records. Rows in excluded transaction categories are dropped.
func ParseTrades(r io.Reader) ([]*models.InsiderTradeModel, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed csv: %v", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}

	trades := make([]*models.InsiderTradeModel, 0, len(rows)-1)
	for _, row := range rows[1:] {
		trade, ok := normalizeRow(row, columns)
		if !ok {
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// normalizeRow maps one feed row to a trade record, or reports false for rows
// that are excluded or unreadable
func normalizeRow(row []string, columns map[string]int) (*models.InsiderTradeModel, bool) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	transactionType := FilterTransactionType(field("Karaktär"))
	if _, excluded := excludedTransactionTypes[transactionType]; excluded {
		return nil, false
	}

	publishingDate, err := parseFeedTime(field("Publiceringsdatum"))
	if err != nil {
		zaplogger.Warn("skipping feed row with unreadable publishing date", zaplogger.Fields{
			"value": field("Publiceringsdatum"),
		})
		return nil, false
	}
	transactionDate, err := parseFeedTime(field("Transaktionsdatum"))
	if err != nil {
		transactionDate = publishingDate
	}

	price, err := parseFeedDecimal(field("Pris"))
	if err != nil {
		zaplogger.Warn("skipping feed row with unreadable price", zaplogger.Fields{
			"value": field("Pris"),
		})
		return nil, false
	}

	return &models.InsiderTradeModel{
		CompanyName:     FilterCompanyName(field("Emittent")),
		InsiderName:     field("Person i ledande ställning"),
		Position:        field("Befattning"),
		TransactionType: transactionType,
		Shares:          parseFeedVolume(field("Volym")),
		Price:           price,
		Currency:        field("Valuta"),
		Status:          field("Status"),
		Isin:            field("ISIN"),
		TransactionDate: transactionDate,
		PublishingDate:  publishingDate,
	}, true
}

// FilterCompanyName strips the legal-form suffixes from an issuer name
func FilterCompanyName(name string) string {
	if name == "" {
		return name
	}
	name = publSuffixRegex.ReplaceAllString(name, "")
	name = abSuffixRegex.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// FilterTransactionType strips the internal-transaction qualifier prefix from
// a transaction type label
func FilterTransactionType(transactionType string) string {
	return internalTxPrefix.ReplaceAllString(strings.TrimSpace(transactionType), "")
}

var feedTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

func parseFeedTime(value string) (time.Time, error) {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized feed time %q", value)
}

// parseFeedVolume tolerates decimal commas in the volume column and truncates
// to whole shares
func parseFeedVolume(value string) int {
	if value == "" {
		return 0
	}
	normalized := strings.ReplaceAll(strings.ReplaceAll(value, " ", ""), ",", ".")
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func parseFeedDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	normalized := strings.ReplaceAll(strings.ReplaceAll(value, " ", ""), ",", ".")
	return decimal.NewFromString(normalized)
}
