package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
	"github.com/ankushKun/pumpmyclaw-sub003/internal/types"
)

// MonadProvider fetches transaction history and pre-normalized swap records
// from an EVM indexer API.
type MonadProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewMonadProvider creates a Monad chain provider backed by the given
// indexer endpoint.
func NewMonadProvider(baseURL, apiKey string, logger *logging.Logger) *MonadProvider {
	return &MonadProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.WithField("adapter", "monad"),
	}
}

// Chain returns the chain this provider serves.
func (p *MonadProvider) Chain() types.Chain {
	return types.ChainMonad
}

// GetSignatures lists transaction hashes for a wallet address, newest first.
// Pagination walks backwards via opts.Before.
func (p *MonadProvider) GetSignatures(ctx context.Context, address string, opts SignatureOptions) ([]types.SignatureInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/addresses/%s/transactions", p.baseURL, strings.ToLower(address))
	sep := "?"
	if opts.Limit > 0 {
		endpoint += fmt.Sprintf("%slimit=%d", sep, opts.Limit)
		sep = "&"
	}
	if opts.Before != "" {
		endpoint += fmt.Sprintf("%sbefore=%s", sep, opts.Before)
	}

	var resp struct {
		Transactions []struct {
			Hash      string `json:"hash"`
			BlockTime int64  `json:"blockTime"`
			Status    string `json:"status"`
		} `json:"transactions"`
	}
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", address, err)
	}

	infos := make([]types.SignatureInfo, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		infos = append(infos, types.SignatureInfo{
			Signature: tx.Hash,
			BlockTime: time.Unix(tx.BlockTime, 0).UTC(),
			Err:       tx.Status == "failed",
		})
	}
	return infos, nil
}

// GetEnhancedTransactions fetches enriched transaction detail for a set of
// hashes, batching according to the fetch mode. A failed batch is logged and
// skipped.
func (p *MonadProvider) GetEnhancedTransactions(ctx context.Context, signatures []string, mode FetchMode) ([]types.EnhancedTransaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}

	profile := profileFor(mode)
	limiter := newBatchLimiter(profile)
	endpoint := fmt.Sprintf("%s/v1/transactions", p.baseURL)

	var transactions []types.EnhancedTransaction
	for _, chunk := range chunkSignatures(signatures, profile.size) {
		if err := limiter.Wait(ctx); err != nil {
			return transactions, err
		}

		reqBody := map[string]interface{}{"hashes": chunk}
		var resp struct {
			Transactions []json.RawMessage `json:"transactions"`
		}
		if err := p.doJSON(ctx, http.MethodPost, endpoint, reqBody, &resp); err != nil {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"batch_size": len(chunk),
				"first":      chunk[0],
			}).Warn("Transaction batch fetch failed, skipping batch")
			continue
		}

		for _, raw := range resp.Transactions {
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

// RegisterWebhook subscribes the indexer's activity stream to a wallet
// address.
func (p *MonadProvider) RegisterWebhook(ctx context.Context, address, secret string) error {
	reqBody := map[string]interface{}{
		"address":    strings.ToLower(address),
		"eventTypes": []string{"swap"},
		"authHeader": secret,
	}

	endpoint := fmt.Sprintf("%s/v1/webhooks", p.baseURL)
	var resp struct {
		ID string `json:"id"`
	}
	if err := p.doJSON(ctx, http.MethodPost, endpoint, reqBody, &resp); err != nil {
		return fmt.Errorf("failed to register webhook for %s: %w", address, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"address":    strings.ToLower(address),
		"webhook_id": resp.ID,
	}).Info("Registered webhook subscription")
	return nil
}

// ValidateAddress reports whether the address is a well-formed 20-byte hex
// address.
func (p *MonadProvider) ValidateAddress(address string) bool {
	return common.IsHexAddress(address)
}

func (p *MonadProvider) doJSON(ctx context.Context, method, endpoint string, reqBody, out interface{}) error {
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
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

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
