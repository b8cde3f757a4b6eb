package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
)

// Geocoder resolves a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
}

// GoogleGeocoder calls the Google Maps geocoding endpoint.
type GoogleGeocoder struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewGoogleGeocoder(endpoint, apiKey string, timeout time.Duration) *GoogleGeocoder {
	return &GoogleGeocoder{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return models.Location{}, apperr.Upstream("Geocoding request failed", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return models.Location{}, apperr.Upstream("Geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, apperr.Upstream("Geocoding request failed", fmt.Errorf("maps api returned HTTP %d", resp.StatusCode))
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, apperr.Upstream("Geocoding response unreadable", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return models.Location{}, apperr.Upstream("Address could not be geocoded",
			fmt.Errorf("maps api status %q: %s", body.Status, body.ErrorMessage))
	}
	loc := body.Results[0].Geometry.Location
	return models.NewLocation(loc.Lat, loc.Lng), nil
}

// CachedGeocoder memoizes another Geocoder's results in Redis. Cache
// failures are logged and fall through to the wrapped geocoder.
type CachedGeocoder struct {
	next Geocoder
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
}

func NewCachedGeocoder(next Geocoder, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, log: logger}
}

func geocodeCacheKey(address string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(address))))
	return "geocode:" + hex.EncodeToString(sum[:])
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	key := geocodeCacheKey(address)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if loc, ok := parseCachedLocation(cached); ok {
			return loc, nil
		}
		c.log.Warn("discarding malformed geocode cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("geocode cache read failed", "error", err)
	}

	loc, err := c.next.Geocode(ctx, address)
	if err != nil {
		return loc, err
	}
	value := strconv.FormatFloat(*loc.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(*loc.Lng, 'f', -1, 64)
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn("geocode cache write failed", "error", err)
	}
	return loc, nil
}

func parseCachedLocation(s string) (models.Location, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return models.Location{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return models.Location{}, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return models.Location{}, false
	}
	return models.NewLocation(lat, lng), true
}
