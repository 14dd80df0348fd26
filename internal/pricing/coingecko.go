package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// CoinGeckoBaseURL is the production CoinGecko API endpoint.
const CoinGeckoBaseURL = "https://api.coingecko.com"

// coinGeckoIDs maps chains to CoinGecko asset identifiers for their native
// asset.
var coinGeckoIDs = map[types.Chain]string{
	types.ChainSolana: "solana",
	types.ChainMonad:  "monad",
}

// CoinGeckoSource resolves native-asset prices from the CoinGecko simple
// price API. Used as the fallback when pair data is unavailable.
type CoinGeckoSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoSource creates a CoinGecko price source. An empty baseURL
// selects the production endpoint.
func NewCoinGeckoSource(baseURL string) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = CoinGeckoBaseURL
	}
	return &CoinGeckoSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the source in logs.
func (s *CoinGeckoSource) Name() string {
	return "coingecko"
}

// NativePriceUSD looks up the chain's native asset price.
func (s *CoinGeckoSource) NativePriceUSD(ctx context.Context, chain types.Chain) (float64, error) {
	id, ok := coinGeckoIDs[chain]
	if !ok {
		return 0, fmt.Errorf("no asset id for chain %s", chain)
	}

	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	entry, ok := body[id]
	if !ok {
		return 0, fmt.Errorf("no price entry for %s", id)
	}
	return entry.USD, nil
}
