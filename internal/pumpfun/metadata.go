// =============================
// File: internal/pumpfun/metadata.go
// =============================
package pumpfun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const metadataTTL = 5 * time.Minute

// TokenMetadata is the off-chain metadata a creation event's URI points at.
// Social links feed the safety scoring; anonymous mints leave them empty.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`

	fetchedAt time.Time
}

// MetadataResolver fetches and caches token metadata by URI.
type MetadataResolver struct {
	cache      sync.Map
	logger     *zap.Logger
	httpClient *http.Client
}

func NewMetadataResolver(logger *zap.Logger) *MetadataResolver {
	return &MetadataResolver{
		logger: logger.Named("metadata"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Resolve returns the metadata behind the URI, served from cache when a
// fresh copy exists.
func (r *MetadataResolver) Resolve(ctx context.Context, uri string) (*TokenMetadata, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty metadata uri")
	}
	if md, ok := r.getFromCache(uri); ok {
		r.logger.Debug("token metadata served from cache", zap.String("uri", uri))
		return md, nil
	}

	md, err := r.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	md.fetchedAt = time.Now()
	r.cache.Store(uri, md)

	r.logger.Debug("token metadata resolved",
		zap.String("uri", uri),
		zap.String("symbol", md.Symbol),
		zap.Bool("has_website", md.Website != ""),
		zap.Bool("has_twitter", md.Twitter != ""))
	return md, nil
}

func (r *MetadataResolver) getFromCache(uri string) (*TokenMetadata, bool) {
	if value, ok := r.cache.Load(uri); ok {
		md := value.(*TokenMetadata)
		if time.Since(md.fetchedAt) < metadataTTL {
			return md, true
		}
		r.cache.Delete(uri)
	}
	return nil, false
}

func (r *MetadataResolver) fetch(ctx context.Context, uri string) (*TokenMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata host returned status code: %d", resp.StatusCode)
	}

	var md TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &md, nil
}
