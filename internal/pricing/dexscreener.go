package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// DexScreenerBaseURL is the production DexScreener API endpoint.
const DexScreenerBaseURL = "https://api.dexscreener.com"

// DexScreenerSource resolves native-asset prices and token price changes from
// DexScreener pair data.
type DexScreenerSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewDexScreenerSource creates a DexScreener price source. An empty baseURL
// selects the production endpoint.
func NewDexScreenerSource(baseURL string) *DexScreenerSource {
	if baseURL == "" {
		baseURL = DexScreenerBaseURL
	}
	return &DexScreenerSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name identifies the source in logs.
func (s *DexScreenerSource) Name() string {
	return "dexscreener"
}

type dexScreenerPair struct {
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
}

// NativePriceUSD looks up the chain's native asset price via its canonical
// token address.
func (s *DexScreenerSource) NativePriceUSD(ctx context.Context, chain types.Chain) (float64, error) {
	pair, err := s.bestPair(ctx, chain.NativeAssetAddress())
	if err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", pair.PriceUSD, err)
	}
	return price, nil
}

// TokenPriceChange24h returns the 24h price change percentage for a token,
// from its deepest-liquidity pair.
func (s *DexScreenerSource) TokenPriceChange24h(ctx context.Context, tokenAddress string) (float64, error) {
	pair, err := s.bestPair(ctx, tokenAddress)
	if err != nil {
		return 0, err
	}
	return pair.PriceChange.H24, nil
}

// bestPair fetches all pairs for a token and picks the one with the deepest
// liquidity.
func (s *DexScreenerSource) bestPair(ctx context.Context, tokenAddress string) (*dexScreenerPair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", s.baseURL, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Pairs []dexScreenerPair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(body.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs for token %s", tokenAddress)
	}

	best := &body.Pairs[0]
	for i := range body.Pairs {
		if body.Pairs[i].Liquidity.USD > best.Liquidity.USD {
			best = &body.Pairs[i]
		}
	}
	return best, nil
}
