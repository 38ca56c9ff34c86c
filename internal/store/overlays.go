package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
)

// Overlays persists per-book ratings and statuses plus the shelf preferences.
// Every read fails open to an empty map or the defaults.
type Overlays struct {
	backend Backend
	keys    Keys
	logger  *slog.Logger
}

// NewOverlays creates the overlay repository.
func NewOverlays(backend Backend, keys Keys, log *slog.Logger) *Overlays {
	return &Overlays{
		backend: backend,
		keys:    keys,
		logger:  logger.OrDiscard(log),
	}
}

// Ratings returns id → rating. Non-numeric entries are dropped and values are clamped.
func (o *Overlays) Ratings(ctx context.Context) map[string]float64 {
	raw := o.loadObject(ctx, o.keys.Ratings())
	out := make(map[string]float64, len(raw))
	dropped := 0
	for id, v := range raw {
		f, ok := v.(float64)
		if !ok {
			dropped++
			continue
		}
		r, ok := domain.ClampRating(f)
		if !ok {
			dropped++
			continue
		}
		out[id] = r
	}
	metrics.RecordDropped(KeyRatings, dropped)
	return out
}

// SaveRatings replaces the rating overlay.
func (o *Overlays) SaveRatings(ctx context.Context, ratings map[string]float64) error {
	return o.save(ctx, o.keys.Ratings(), ratings)
}

// Statuses returns id → status. Unknown statuses are dropped.
func (o *Overlays) Statuses(ctx context.Context) map[string]domain.ReadingStatus {
	raw := o.loadObject(ctx, o.keys.Statuses())
	out := make(map[string]domain.ReadingStatus, len(raw))
	dropped := 0
	for id, v := range raw {
		s, isString := v.(string)
		if !isString {
			dropped++
			continue
		}
		status, ok := domain.ParseStatus(s)
		if !ok {
			dropped++
			continue
		}
		out[id] = status
	}
	metrics.RecordDropped(KeyStatuses, dropped)
	return out
}

// SaveStatuses replaces the status overlay.
func (o *Overlays) SaveStatuses(ctx context.Context, statuses map[string]domain.ReadingStatus) error {
	return o.save(ctx, o.keys.Statuses(), statuses)
}

// Filters returns the stored filter preference.
func (o *Overlays) Filters(ctx context.Context) domain.Filters {
	raw := o.loadObject(ctx, o.keys.Filters())
	f := domain.Filters{}
	f.Query, _ = raw["query"].(string)
	if s, ok := raw["status"].(string); ok {
		f.Status = domain.ReadingStatus(s)
	}
	f.Genre, _ = raw["genre"].(string)
	return f.Normalized()
}

// SaveFilters replaces the filter preference.
func (o *Overlays) SaveFilters(ctx context.Context, f domain.Filters) error {
	return o.save(ctx, o.keys.Filters(), f.Normalized())
}

// Sort returns the stored sort preference.
func (o *Overlays) Sort(ctx context.Context) domain.SortPreference {
	raw := o.loadObject(ctx, o.keys.Sort())
	field, _ := raw["field"].(string)
	dir, _ := raw["direction"].(string)
	return domain.SortPreference{
		Field:     domain.SortField(field),
		Direction: domain.SortDirection(dir),
	}.Normalized()
}

// SaveSort replaces the sort preference.
func (o *Overlays) SaveSort(ctx context.Context, s domain.SortPreference) error {
	return o.save(ctx, o.keys.Sort(), s.Normalized())
}

func (o *Overlays) loadObject(ctx context.Context, key string) map[string]any {
	data, err := o.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			o.logger.Warn("overlay unreadable, using defaults", "key", key, "error", err)
		}
		return map[string]any{}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		o.logger.Warn("overlay corrupt, using defaults", "key", key)
		return map[string]any{}
	}
	return raw
}

func (o *Overlays) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := o.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
