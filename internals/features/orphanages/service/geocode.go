package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pantiku_backend/internals/configs"
)

// GeocodeResult: koordinat hasil lookup alamat.
type GeocodeResult struct {
	Latitude  float64
	Longitude float64
}

// GeocodeClient memanggil endpoint geocoding gaya Nominatim.
// Best-effort: kegagalan apa pun menghasilkan (nil, nil) + log, koordinat
// orphanage dibiarkan kosong.
type GeocodeClient struct {
	baseURL string
	client  *http.Client
}

func NewGeocodeClient() *GeocodeClient {
	return &GeocodeClient{
		baseURL: configs.GetEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup alamat → koordinat. nil tanpa error = tidak ketemu / di-skip.
func (g *GeocodeClient) Lookup(ctx context.Context, address string) (*GeocodeResult, error) {
	if address == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pantiku-backend/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("[WARN] geocode: request gagal: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[WARN] geocode: status %d untuk %q", resp.StatusCode, address)
		return nil, nil
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		log.Printf("[WARN] geocode: decode gagal: %v", err)
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("geocode: koordinat tidak valid: %q/%q", hits[0].Lat, hits[0].Lon)
	}
	return &GeocodeResult{Latitude: lat, Longitude: lon}, nil
}
