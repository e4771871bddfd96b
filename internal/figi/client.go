// Package figi contains the OpenFIGI mapping client used for ticker resolution
package figi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbergqvist/insynsapi/pkg/utils/zaplogger"
)

// Home market preferences used to pick one mapping when a security is listed
// on several venues.
const (
	HomeExchangeCode = "SS"
	HomeMIC          = "XSTO"
	EquitySector     = "Equity"
)

// Client is an OpenFIGI v3 mapping API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new OpenFIGI client. apiKey may be empty, the public
// rate limits apply in that case.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type mappingRequest struct {
	IDType  string `json:"idType"`
	IDValue string `json:"idValue"`
}

type mappingResult struct {
	Data  []Mapping `json:"data"`
	Error string    `json:"error"`
}

// Mapping is one candidate instrument mapping returned by OpenFIGI
type Mapping struct {
	Ticker       string `json:"ticker"`
	ExchCode     string `json:"exchCode"`
	MicCode      string `json:"micCode"`
	MarketSector string `json:"marketSector"`
}

// GetTickerByISIN resolves an ISIN to a ticker symbol. A lookup that fails or
// returns no usable mapping yields an empty string, never an error to the
// caller: the symbol resolver treats absence as a valid terminal state.
func (c *Client) GetTickerByISIN(ctx context.Context, isin string) string {
	ticker, err := c.lookupISIN(ctx, isin)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		zaplogger.Error("failed to resolve ticker", zaplogger.Fields{
			"isin":  isin,
			"error": err.Error(),
		})
		return ""
	}
	return ticker
}

func (c *Client) lookupISIN(ctx context.Context, isin string) (string, error) {
	payload, err := json.Marshal([]mappingRequest{{IDType: "ID_ISIN", IDValue: isin}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal mapping request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mapping", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create mapping request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mapping request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read mapping response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mapping request returned status %d", resp.StatusCode)
	}

	var results []mappingResult
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("failed to decode mapping response: %v", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	if results[0].Error != "" {
		return "", nil
	}

	best := SelectBestMapping(results[0].Data)
	if best == nil {
		return "", nil
	}
	return best.Ticker, nil
}

// SelectBestMapping picks one mapping out of the candidates for an ISIN.
// Preference order: home exchange code, home MIC, equity market sector. The
// first candidate satisfying the highest-priority criterion wins; with no
// match at all the first candidate is taken.
func SelectBestMapping(mappings []Mapping) *Mapping {
	if len(mappings) == 0 {
		return nil
	}
	for i := range mappings {
		if mappings[i].ExchCode == HomeExchangeCode {
			return &mappings[i]
		}
	}
	for i := range mappings {
		if mappings[i].MicCode == HomeMIC {
			return &mappings[i]
		}
	}
	for i := range mappings {
		if mappings[i].MarketSector == EquitySector {
			return &mappings[i]
		}
	}
	return &mappings[0]
}
