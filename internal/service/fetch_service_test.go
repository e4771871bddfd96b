package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedHeader = "Publiceringsdatum;Emittent;LEI-kod;Anmälningsskyldig;Person i ledande ställning;Befattning;Närstående;Korrigering;Beskrivning av korrigering;Är förstagångsrapportering;Är kopplad till aktieprogram;Karaktär;Instrumenttyp;Instrumentnamn;ISIN;Transaktionsdatum;Volym;Volymsenhet;Pris;Valuta;Handelsplats;Status"

func feedRow(company, insider, position, txType, volume, price, status string) string {
	return strings.Join([]string{
		"2024-06-01 12:00:00", company, "LEI123", insider, insider, position,
		"Nej", "", "", "Ja", "Nej", txType, "Aktie", company, "SE0000000001",
		"2024-05-31", volume, "Antal", price, "SEK", "XSTO", status,
	}, ";")
}

func TestParseTrades(t *testing.T) {
	t.Run("normalizes a feed row", func(t *testing.T) {
		data := feedHeader + "\n" + feedRow("Foo Corp AB (publ)", "Alice", "CFO", "Förvärv", "100", "10,5", "Aktuell")

		trades, err := ParseTrades(strings.NewReader(data))

		require.NoError(t, err)
		require.Len(t, trades, 1)
		trade := trades[0]
		assert.Equal(t, "Foo Corp", trade.CompanyName)
		assert.Equal(t, "Alice", trade.InsiderName)
		assert.Equal(t, "CFO", trade.Position)
		assert.Equal(t, "Förvärv", trade.TransactionType)
		assert.Equal(t, 100, trade.Shares)
		assert.Equal(t, "10.5", trade.Price.String())
		assert.Equal(t, "SEK", trade.Currency)
		assert.Equal(t, "SE0000000001", trade.Isin)
		assert.Equal(t, "Aktuell", trade.Status)
		assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), trade.PublishingDate)
		assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), trade.TransactionDate)
	})

	t.Run("drops excluded transaction categories", func(t *testing.T) {
		rows := []string{feedHeader}
		for _, txType := range []string{
			"Lån mottaget", "Utdelning lämnad", "Pantsättning", "Lösen ökning",
			"Bodelning minskning", "Arv mottagen", "Konvertering ökning",
		} {
			rows = append(rows, feedRow("Foo Corp", "Alice", "CFO", txType, "100", "10,5", "Aktuell"))
		}
		rows = append(rows, feedRow("Foo Corp", "Alice", "CFO", "Förvärv", "100", "10,5", "Aktuell"))

		trades, err := ParseTrades(strings.NewReader(strings.Join(rows, "\n")))

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "Förvärv", trades[0].TransactionType)
	})

	t.Run("strips the internal transaction qualifier", func(t *testing.T) {
		data := feedHeader + "\n" + feedRow("Foo Corp", "Alice", "CFO", "Interntransaktion – Förvärv", "100", "10,5", "Aktuell")

		trades, err := ParseTrades(strings.NewReader(data))

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "Förvärv", trades[0].TransactionType)
	})

	t.Run("tolerates a decimal comma volume", func(t *testing.T) {
		data := feedHeader + "\n" + feedRow("Foo Corp", "Alice", "CFO", "Förvärv", "100,6", "10,5", "Aktuell")

		trades, err := ParseTrades(strings.NewReader(data))

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, 100, trades[0].Shares)
	})

	t.Run("tolerates a byte order mark", func(t *testing.T) {
		data := "\ufeff" + feedHeader + "\n" + feedRow("Foo Corp", "Alice", "CFO", "Förvärv", "100", "10,5", "Aktuell")

		trades, err := ParseTrades(strings.NewReader(data))

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), trades[0].PublishingDate)
	})

	t.Run("empty input yields no trades", func(t *testing.T) {
		trades, err := ParseTrades(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, trades)
	})
}

func TestFilterCompanyName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Foo Corp AB", "Foo Corp"},
		{"Foo Corp AB (publ)", "Foo Corp"},
		{"Foo Corp (publ)", "Foo Corp"},
		{"AB Foo Corp", "Foo Corp"},
		{"Fabulous Industries", "Fabulous Industries"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FilterCompanyName(c.in), "input %q", c.in)
	}
}

func TestFilterTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Interntransaktion – Förvärv", "Förvärv"},
		{"Interntransaktion - Avyttring", "Avyttring"},
		{"Förvärv", "Förvärv"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FilterTransactionType(c.in), "input %q", c.in)
	}
}
