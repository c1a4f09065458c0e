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

const DefaultBigDataCloudURL = "https://api.bigdatacloud.net"

type bigDataCloudResponse struct {
	Locality             string `json:"locality"`
	City                 string `json:"city"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}

type BigDataCloud struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewBigDataCloud(cfg Config) *BigDataCloud {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBigDataCloudURL
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &BigDataCloud{
		baseURL:  strings.TrimRight(base, "/"),
		language: lang,
		client:   newHTTPClient(cfg.Timeout),
	}
}

func (b *BigDataCloud) Name() string { return "bigdatacloud" }

// ReverseGeocode implements geocode.Resolver.
func (b *BigDataCloud) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("localityLanguage", b.language)

	var resp bigDataCloudResponse
	if err := getJSON(ctx, b.client, b.baseURL+"/data/reverse-geocode-client", q, nil, &resp); err != nil {
		return "", fmt.Errorf("bigdatacloud: %w", err)
	}

	if name := firstNonEmpty(resp.Locality, resp.City, resp.PrincipalSubdivision, resp.CountryName); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("bigdatacloud: %w", geocode.ErrNoResult)
}
