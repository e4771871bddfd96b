package figi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMappingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetTickerByISIN(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a single mapping", func(t *testing.T) {
		srv := newMappingServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/mapping", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var reqs []mappingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
			require.Len(t, reqs, 1)
			assert.Equal(t, "ID_ISIN", reqs[0].IDType)
			assert.Equal(t, "SE0000000001", reqs[0].IDValue)

			json.NewEncoder(w).Encode([]mappingResult{
				{Data: []Mapping{{Ticker: "FOO", ExchCode: "SS"}}},
			})
		})

		client := NewClient(srv.URL, "")
		assert.Equal(t, "FOO", client.GetTickerByISIN(ctx, "SE0000000001"))
	})

	t.Run("sends the api key header when configured", func(t *testing.T) {
		srv := newMappingServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret", r.Header.Get("X-OPENFIGI-APIKEY"))
			json.NewEncoder(w).Encode([]mappingResult{
				{Data: []Mapping{{Ticker: "FOO"}}},
			})
		})

		client := NewClient(srv.URL, "secret")
		assert.Equal(t, "FOO", client.GetTickerByISIN(ctx, "SE0000000001"))
	})

	t.Run("unknown isin yields absence", func(t *testing.T) {
		srv := newMappingServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]mappingResult{{Error: "No identifier found."}})
		})

		client := NewClient(srv.URL, "")
		assert.Empty(t, client.GetTickerByISIN(ctx, "SE0000000009"))
	})

	t.Run("server error yields absence, not failure", func(t *testing.T) {
		srv := newMappingServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		})

		client := NewClient(srv.URL, "")
		assert.Empty(t, client.GetTickerByISIN(ctx, "SE0000000001"))
	})

	t.Run("unreachable server yields absence", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "")
		assert.Empty(t, client.GetTickerByISIN(ctx, "SE0000000001"))
	})
}

func TestSelectBestMapping(t *testing.T) {
	home := Mapping{Ticker: "FOO", ExchCode: "SS", MicCode: "XSTO", MarketSector: "Equity"}
	mic := Mapping{Ticker: "FOO-MIC", ExchCode: "XX", MicCode: "XSTO", MarketSector: "Equity"}
	equity := Mapping{Ticker: "FOO-EQ", ExchCode: "XX", MicCode: "XXXX", MarketSector: "Equity"}
	other := Mapping{Ticker: "FOO-X", ExchCode: "XX", MicCode: "XXXX", MarketSector: "Curncy"}

	t.Run("prefers the home exchange code regardless of order", func(t *testing.T) {
		for _, mappings := range [][]Mapping{
			{home, mic, equity},
			{mic, home, equity},
			{equity, mic, home},
		} {
			best := SelectBestMapping(mappings)
			require.NotNil(t, best)
			assert.Equal(t, "FOO", best.Ticker)
		}
	})

	t.Run("falls back to the home mic", func(t *testing.T) {
		best := SelectBestMapping([]Mapping{equity, mic, other})
		require.NotNil(t, best)
		assert.Equal(t, "FOO-MIC", best.Ticker)
	})

	t.Run("falls back to the equity sector", func(t *testing.T) {
		best := SelectBestMapping([]Mapping{other, equity})
		require.NotNil(t, best)
		assert.Equal(t, "FOO-EQ", best.Ticker)
	})

	t.Run("takes the first candidate when nothing matches", func(t *testing.T) {
		best := SelectBestMapping([]Mapping{other, {Ticker: "FOO-Y", MarketSector: "Govt"}})
		require.NotNil(t, best)
		assert.Equal(t, "FOO-X", best.Ticker)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Nil(t, SelectBestMapping(nil))
	})
}
