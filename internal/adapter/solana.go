package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

const (
	solanaAddressMinLen = 32
	solanaAddressMaxLen = 44

	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

// SolanaProvider fetches signature history and enriched transactions from a
// Helius-compatible indexer API.
type SolanaProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSolanaProvider creates a Solana chain provider backed by the given
// indexer endpoint.
func NewSolanaProvider(baseURL, apiKey string, logger *logging.Logger) *SolanaProvider {
	return &SolanaProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.WithField("adapter", "solana"),
	}
}

// Chain returns the chain this provider serves.
func (p *SolanaProvider) Chain() types.Chain {
	return types.ChainSolana
}

// GetSignatures lists transaction signatures for a wallet address, newest
// first. Pagination walks backwards via opts.Before.
func (p *SolanaProvider) GetSignatures(ctx context.Context, address string, opts SignatureOptions) ([]types.SignatureInfo, error) {
	params := []interface{}{address, map[string]interface{}{}}
	cfg := params[1].(map[string]interface{})
	if opts.Limit > 0 {
		cfg["limit"] = opts.Limit
	}
	if opts.Before != "" {
		cfg["before"] = opts.Before
	}

	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "1",
		"method":  "getSignaturesForAddress",
		"params":  params,
	}

	var rpcResp struct {
		Result []struct {
			Signature string          `json:"signature"`
			BlockTime int64           `json:"blockTime"`
			Err       json.RawMessage `json:"err"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	endpoint := fmt.Sprintf("%s/?api-key=%s", p.baseURL, url.QueryEscape(p.apiKey))
	if err := p.doJSON(ctx, http.MethodPost, endpoint, reqBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to list signatures for %s: %w", address, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("signature listing failed for %s: rpc error %d: %s", address, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	infos := make([]types.SignatureInfo, 0, len(rpcResp.Result))
	for _, r := range rpcResp.Result {
		failed := len(r.Err) > 0 && string(r.Err) != "null"
		infos = append(infos, types.SignatureInfo{
			Signature: r.Signature,
			BlockTime: time.Unix(r.BlockTime, 0).UTC(),
			Err:       failed,
		})
	}
	return infos, nil
}

// GetEnhancedTransactions fetches parsed transaction detail for a set of
// signatures, batching according to the fetch mode. A failed batch is logged
// and skipped so one bad chunk does not discard the rest.
func (p *SolanaProvider) GetEnhancedTransactions(ctx context.Context, signatures []string, mode FetchMode) ([]types.EnhancedTransaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}

	profile := profileFor(mode)
	limiter := newBatchLimiter(profile)
	endpoint := fmt.Sprintf("%s/v0/transactions?api-key=%s", p.baseURL, url.QueryEscape(p.apiKey))

	var transactions []types.EnhancedTransaction
	for _, chunk := range chunkSignatures(signatures, profile.size) {
		if err := limiter.Wait(ctx); err != nil {
			return transactions, err
		}

		reqBody := map[string]interface{}{"transactions": chunk}
		var raws []json.RawMessage
		if err := p.doJSON(ctx, http.MethodPost, endpoint, reqBody, &raws); err != nil {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"batch_size": len(chunk),
				"first":      chunk[0],
			}).Warn("Transaction batch fetch failed, skipping batch")
			continue
		}

		for _, raw := range raws {
			var tx types.EnhancedTransaction
			if err := json.Unmarshal(raw, &tx); err != nil {
				p.logger.WithError(err).Warn("Skipping undecodable transaction in batch")
				continue
			}
			tx.Raw = raw
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}

// RegisterWebhook subscribes the indexer's webhook stream to a wallet address.
func (p *SolanaProvider) RegisterWebhook(ctx context.Context, address, secret string) error {
	reqBody := map[string]interface{}{
		"accountAddresses": []string{address},
		"transactionTypes": []string{"SWAP"},
		"webhookType":      "enhanced",
		"authHeader":       secret,
	}

	endpoint := fmt.Sprintf("%s/v0/webhooks?api-key=%s", p.baseURL, url.QueryEscape(p.apiKey))
	var resp struct {
		WebhookID string `json:"webhookID"`
	}
	if err := p.doJSON(ctx, http.MethodPost, endpoint, reqBody, &resp); err != nil {
		return fmt.Errorf("failed to register webhook for %s: %w", address, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"address":    address,
		"webhook_id": resp.WebhookID,
	}).Info("Registered webhook subscription")
	return nil
}

// ValidateAddress reports whether the address is a plausible Solana public
// key: base58 alphabet, 32 to 44 characters.
func (p *SolanaProvider) ValidateAddress(address string) bool {
	if len(address) < solanaAddressMinLen || len(address) > solanaAddressMaxLen {
		return false
	}
	for _, c := range address {
		if !isBase58Char(byte(c)) {
			return false
		}
	}
	return true
}

func isBase58Char(c byte) bool {
	for i := 0; i < len(base58Alphabet); i++ {
		if base58Alphabet[i] == c {
			return true
		}
	}
	return false
}

func (p *SolanaProvider) doJSON(ctx context.Context, method, endpoint string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
