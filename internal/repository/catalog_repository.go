package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/pkg/config"
)

// CatalogRepository fetches the static content-catalog document that
// enriches activities with media URLs. The document lives on plain static
// hosting; its absence is tolerated and callers degrade to primary-store
// data only.
type CatalogRepository struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

// NewCatalogRepository constructs a catalog repository. Unlike the record
// store gateway, catalog fetches carry a timeout: the document is a
// nice-to-have and must not stall activity listings.
func NewCatalogRepository(cfg config.CatalogConfig, logger *zap.Logger) *CatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRepository{
		http:   &http.Client{Timeout: cfg.FetchTimeout},
		url:    cfg.URL,
		logger: logger,
	}
}

// Fetch downloads and decodes the catalog document.
func (r *CatalogRepository) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	if r.url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch content catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content catalog returned %d", resp.StatusCode)
	}

	var entries []models.CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode content catalog: %w", err)
	}

	r.logger.Debug("content catalog fetched", zap.Int("entries", len(entries)))
	return entries, nil
}
