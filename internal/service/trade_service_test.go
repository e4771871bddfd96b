package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbergqvist/insynsapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTradeStore implements TradeStore backed by an in-memory slice
type mockTradeStore struct {
	trades    []*models.InsiderTradeModel
	nextID    uint
	commitErr error
	queryErr  error

	commitCalls int
	ingestLogs  []*models.IngestLogModel
}

func newMockTradeStore() *mockTradeStore {
	return &mockTradeStore{nextID: 1}
}

func (m *mockTradeStore) GetTradesByPublishingDates(dates []time.Time) ([]*models.InsiderTradeModel, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []*models.InsiderTradeModel
	for _, t := range m.trades {
		for _, d := range dates {
			if t.PublishingDate.Equal(d) {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (m *mockTradeStore) CommitChanges(toAdd, toRemove []*models.InsiderTradeModel) error {
	m.commitCalls++
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, t := range toAdd {
		t.ID = m.nextID
		m.nextID++
		m.trades = append(m.trades, t)
	}
	for _, r := range toRemove {
		for i, t := range m.trades {
			if t.ID == r.ID {
				m.trades = append(m.trades[:i], m.trades[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *mockTradeStore) GetAllTrades() ([]*models.InsiderTradeModel, error) {
	return m.trades, nil
}

func (m *mockTradeStore) GetTopTrades(from, to time.Time, limit int) ([]*models.InsiderTradeModel, error) {
	return m.trades, nil
}

func (m *mockTradeStore) GetBuyActivity(companyName string, days, limit int) ([]models.TradeActivityModel, error) {
	return nil, nil
}

func (m *mockTradeStore) InsertIngestLog(entry *models.IngestLogModel) error {
	m.ingestLogs = append(m.ingestLogs, entry)
	return nil
}

func newTestTradeService(store *mockTradeStore) *TradeService {
	return NewTradeService(store, NewSymbolService(newFakeTickerLookup()), nil)
}

func TestAddInsiderTrades(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		svc := newTestTradeService(newMockTradeStore())

		msg, err := svc.AddInsiderTrades(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, MsgNoData, msg)
	})

	t.Run("new trades are added", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		msg, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})

		require.NoError(t, err)
		assert.Equal(t, "1 new trades added.", msg)
		assert.Len(t, store.trades, 1)
	})

	t.Run("resubmitting the same batch is idempotent", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})
		require.NoError(t, err)

		msg, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})
		require.NoError(t, err)
		assert.Equal(t, MsgNothingAdded, msg)
		assert.Len(t, store.trades, 1, "stored set must be unchanged in size")
	})

	t.Run("revision retracts a stored trade", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})
		require.NoError(t, err)

		revision := makeTrade(func(m *models.InsiderTradeModel) { m.Status = models.StatusRevised })
		msg, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{revision})

		require.NoError(t, err)
		assert.Equal(t, "1 trades removed.", msg)
		assert.Empty(t, store.trades, "storage is empty again")
	})

	t.Run("revision without a match reports nothing added", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		revision := makeTrade(func(m *models.InsiderTradeModel) { m.Status = models.StatusRevised })
		msg, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{revision})

		require.NoError(t, err)
		assert.Equal(t, MsgNothingAdded, msg)
		assert.Empty(t, store.trades)
		assert.Equal(t, 0, store.commitCalls, "a no-op run must not commit")
	})

	t.Run("mixed batch reports both counts", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})
		require.NoError(t, err)

		batch := []*models.InsiderTradeModel{
			makeTrade(func(m *models.InsiderTradeModel) { m.Status = models.StatusRevised }),
			makeTrade(func(m *models.InsiderTradeModel) { m.CompanyName = "Bar Corp" }),
			makeTrade(func(m *models.InsiderTradeModel) { m.CompanyName = "Baz Corp" }),
		}
		msg, err := svc.AddInsiderTrades(ctx, batch)

		require.NoError(t, err)
		assert.Equal(t, "2 new trades added. 1 trades removed.", msg)
	})

	t.Run("commit failure is propagated", func(t *testing.T) {
		store := newMockTradeStore()
		store.commitErr = errors.New("connection lost")
		svc := newTestTradeService(store)

		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})

		assert.ErrorContains(t, err, "connection lost")
		assert.Empty(t, store.trades, "no partial state is committed")
	})

	t.Run("query failure is propagated", func(t *testing.T) {
		store := newMockTradeStore()
		store.queryErr = errors.New("db down")
		svc := newTestTradeService(store)

		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})

		assert.ErrorContains(t, err, "db down")
	})

	t.Run("symbols are resolved before commit", func(t *testing.T) {
		store := newMockTradeStore()
		lookup := newFakeTickerLookup().Map("SE0000000001", "FOO")
		svc := NewTradeService(store, NewSymbolService(lookup), nil)

		trade := makeTrade(func(m *models.InsiderTradeModel) { m.Isin = "SE0000000001" })
		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{trade})

		require.NoError(t, err)
		require.Len(t, store.trades, 1)
		assert.Equal(t, "FOO", store.trades[0].Symbol)
	})

	t.Run("only trades on the batch dates bound the comparison set", func(t *testing.T) {
		store := newMockTradeStore()
		svc := newTestTradeService(store)

		// same natural key except publishing date: not a candidate for matching
		otherDay := makeTrade(func(m *models.InsiderTradeModel) {
			m.PublishingDate = m.PublishingDate.AddDate(0, 0, -7)
		})
		_, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{otherDay})
		require.NoError(t, err)

		msg, err := svc.AddInsiderTrades(ctx, []*models.InsiderTradeModel{makeTrade()})
		require.NoError(t, err)
		assert.Equal(t, "1 new trades added.", msg)
		assert.Len(t, store.trades, 2)
	})
}

func TestLogIngestRun(t *testing.T) {
	store := newMockTradeStore()
	svc := newTestTradeService(store)

	svc.LogIngestRun("run-1", time.Now(), &IngestResult{Added: 3, Removed: 1, Message: "3 new trades added. 1 trades removed."})

	require.Len(t, store.ingestLogs, 1)
	entry := store.ingestLogs[0]
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, 3, entry.Added)
	assert.Equal(t, 1, entry.Removed)
}
