// Package animals resolves animal display names from the herd registry.
package animals

import (
	"context"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
)

type animalRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory looks animals up at GET /animals/{id} and caches names for ttl.
// Lookups never fail: unknown or unreachable animals resolve to "".
type Directory struct {
	rest   *rest.Client
	cache  *cache.Cache
	logger *zap.Logger
}

func NewDirectory(c *rest.Client, ttl time.Duration, logger *zap.Logger) *Directory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		rest:   c,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (d *Directory) AnimalName(ctx context.Context, animalID string) string {
	if cached, found := d.cache.Get(animalID); found {
		if name, ok := cached.(string); ok {
			return name
		}
	}
	var rec animalRecord
	if err := d.rest.GetJSON(ctx, "/animals/"+url.PathEscape(animalID), &rec); err != nil {
		d.logger.Warn("resolve animal name", zap.String("animalId", animalID), zap.Error(err))
		return ""
	}
	if rec.Name == "" {
		return ""
	}
	d.cache.SetDefault(animalID, rec.Name)
	return rec.Name
}
