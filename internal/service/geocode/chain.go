package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/geocode"
)

// Chain tries each resolver in order and falls back to a coordinate label.
type Chain struct {
	resolvers []geocode.Resolver
	timeout   time.Duration
}

func NewChain(timeout time.Duration, resolvers ...geocode.Resolver) attendance.AreaResolver {
	return &Chain{resolvers: resolvers, timeout: timeout}
}

// Resolve implements attendance.AreaResolver. Provider failures are logged
// and never returned; the result is nil only for a nil sample.
func (c *Chain) Resolve(ctx context.Context, sample *attendance.LocationSample) *string {
	if sample == nil {
		return nil
	}

	for _, r := range c.resolvers {
		name, err := c.attempt(ctx, r, sample.Latitude, sample.Longitude)
		if err != nil {
			slog.Warn("reverse geocoding failed",
				"provider", r.Name(),
				"latitude", sample.Latitude,
				"longitude", sample.Longitude,
				"error", err,
			)
			continue
		}
		return &name
	}

	label := CoordinateLabel(sample.Latitude, sample.Longitude)
	return &label
}

func (c *Chain) attempt(ctx context.Context, r geocode.Resolver, lat, lon float64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	name, err := r.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", geocode.ErrNoResult
	}
	return name, nil
}

// CoordinateLabel is the last-resort area name.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("Location (%.4f, %.4f)", lat, lon)
}
