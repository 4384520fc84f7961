package normalize

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/dartlens/backend/internal/contracts"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// ErrNoMappings is returned when no loader produced a usable mapping set
var ErrNoMappings = errors.New("no account mappings available")

// Registry holds the account mappings for the process.
// It loads lazily on first use and keeps the set until Reload or Clear.
// ⭐ SSOT: 계정 매핑 캐시는 Registry 인스턴스 하나로만 관리
type Registry struct {
	loaders []contracts.MappingLoader
	logger  *logger.Logger

	mu       sync.RWMutex
	mappings map[contracts.AccountKey]contracts.AccountMapping
}

// NewRegistry creates a registry that tries loaders in order.
// The first loader returning at least one valid row wins.
func NewRegistry(log *logger.Logger, loaders ...contracts.MappingLoader) *Registry {
	return &Registry{
		loaders: loaders,
		logger:  log.WithModule("normalize"),
	}
}

// Lookup returns the mapping for key, loading the set if needed
func (r *Registry) Lookup(ctx context.Context, key contracts.AccountKey) (contracts.AccountMapping, bool, error) {
	mappings, err := r.snapshot(ctx)
	if err != nil {
		return contracts.AccountMapping{}, false, err
	}
	m, ok := mappings[key]
	return m, ok, nil
}

// All returns the active mappings in canonical key order
func (r *Registry) All(ctx context.Context) ([]contracts.AccountMapping, error) {
	mappings, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]contracts.AccountMapping, 0, len(mappings))
	for _, k := range contracts.AccountKeys {
		if m, ok := mappings[k]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Reload discards the cached set and loads it again
func (r *Registry) Reload(ctx context.Context) (int, error) {
	mappings, err := r.load(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.mappings = mappings
	r.mu.Unlock()

	return len(mappings), nil
}

// Clear drops the cached set; the next lookup reloads
func (r *Registry) Clear() {
	r.mu.Lock()
	r.mappings = nil
	r.mu.Unlock()
}

func (r *Registry) snapshot(ctx context.Context) (map[contracts.AccountKey]contracts.AccountMapping, error) {
	r.mu.RLock()
	mappings := r.mappings
	r.mu.RUnlock()
	if mappings != nil {
		return mappings, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mappings != nil {
		return r.mappings, nil
	}

	loaded, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	r.mappings = loaded
	return loaded, nil
}

func (r *Registry) load(ctx context.Context) (map[contracts.AccountKey]contracts.AccountMapping, error) {
	var lastErr error
	for i, loader := range r.loaders {
		rows, err := loader.LoadMappings(ctx)
		if err != nil {
			r.logger.WithError(err).WithField("loader", i).Warn("Mapping loader failed, trying next")
			lastErr = err
			continue
		}

		mappings := r.index(rows)
		if len(mappings) == 0 {
			continue
		}

		r.logger.WithFields(map[string]interface{}{
			"loader":   i,
			"mappings": len(mappings),
		}).Info("Loaded account mappings")
		return mappings, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoMappings, lastErr)
	}
	return nil, ErrNoMappings
}

func (r *Registry) index(rows []contracts.AccountMapping) map[contracts.AccountKey]contracts.AccountMapping {
	mappings := make(map[contracts.AccountKey]contracts.AccountMapping, len(rows))
	for _, row := range rows {
		if !contracts.IsAccountKey(row.Key) {
			r.logger.WithField("key", row.Key).Warn("Ignoring mapping for unknown account key")
			continue
		}

		aliases := make([]string, 0, contracts.MaxAliases)
		for _, a := range row.Aliases {
			if a != "" && len(aliases) < contracts.MaxAliases {
				aliases = append(aliases, a)
			}
		}
		row.Aliases = aliases
		mappings[row.Key] = row
	}

	for _, k := range contracts.AccountKeys {
		if _, ok := mappings[k]; !ok && len(mappings) > 0 {
			r.logger.WithField("key", k).Warn("No mapping row for account key")
		}
	}
	return mappings
}
