package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/geocode"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Error       string `json:"error"`
	Address     struct {
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		Village       string `json:"village"`
		Town          string `json:"town"`
		City          string `json:"city"`
		County        string `json:"county"`
		State         string `json:"state"`
	} `json:"address"`
}

// areaName prefers a short "locality, city" label over the full display name.
func (r nominatimResponse) areaName() string {
	a := r.Address
	local := firstNonEmpty(a.Suburb, a.Neighbourhood, a.Village, a.Road)
	city := firstNonEmpty(a.City, a.Town, a.County, a.State)

	switch {
	case local != "" && city != "" && local != city:
		return local + ", " + city
	case city != "":
		return city
	case local != "":
		return local
	case r.Name != "":
		return r.Name
	}
	return r.DisplayName
}

type Nominatim struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
}

func NewNominatim(cfg Config) *Nominatim {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultNominatimURL
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		client:    newHTTPClient(cfg.Timeout),
	}
}

func (n *Nominatim) Name() string { return "nominatim" }

// ReverseGeocode implements geocode.Resolver.
func (n *Nominatim) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	header := http.Header{}
	if n.userAgent != "" {
		header.Set("User-Agent", n.userAgent)
	}
	if n.language != "" {
		header.Set("Accept-Language", n.language)
	}

	var resp nominatimResponse
	if err := getJSON(ctx, n.client, n.baseURL+"/reverse", q, header, &resp); err != nil {
		return "", fmt.Errorf("nominatim: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("nominatim: %s: %w", resp.Error, geocode.ErrNoResult)
	}

	name := strings.TrimSpace(resp.areaName())
	if name == "" {
		return "", fmt.Errorf("nominatim: %w", geocode.ErrNoResult)
	}
	return name, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
