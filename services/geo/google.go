package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"proxo/models"
)

const defaultGoogleMapsURL = "https://maps.googleapis.com"

// GoogleGeocoder implements Geocoder with the Google Geocoding and Places Text Search APIs.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleGeocoder creates a geocoder. An empty baseURL uses maps.googleapis.com.
func NewGoogleGeocoder(apiKey, baseURL string) *GoogleGeocoder {
	if baseURL == "" {
		baseURL = defaultGoogleMapsURL
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Available reports whether the geocoder has credentials to make calls.
func (g *GoogleGeocoder) Available() bool {
	return g != nil && g.apiKey != ""
}

// geocodeResponse represents the structure of the response from the Geocoding API.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// textSearchResponse represents the structure of the response from Places Text Search.
type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleGeocoder) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", g.apiKey)
	endpoint := g.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", ErrGeocodeFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGeocodeFailed, err)
	}
	return nil
}

func statusError(status, message string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS":
		return ErrNoResults
	default:
		return fmt.Errorf("%w: status %s %s", ErrGeocodeFailed, status, message)
	}
}

// ReverseGeocode returns the formatted address of the first result for lat,lng.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))

	var data geocodeResponse
	if err := g.getJSON(ctx, "/maps/api/geocode/json", params, &data); err != nil {
		return "", err
	}
	if err := statusError(data.Status, data.ErrorMessage); err != nil {
		return "", err
	}
	if len(data.Results) == 0 {
		return "", ErrNoResults
	}
	return data.Results[0].FormattedAddress, nil
}

// TextSearch returns up to MaxSearchResults places matching query.
func (g *GoogleGeocoder) TextSearch(ctx context.Context, query string) ([]models.Place, error) {
	params := url.Values{}
	params.Set("query", query)

	var data textSearchResponse
	if err := g.getJSON(ctx, "/maps/api/place/textsearch/json", params, &data); err != nil {
		return nil, err
	}
	if err := statusError(data.Status, data.ErrorMessage); err != nil {
		return nil, err
	}

	places := make([]models.Place, 0, MaxSearchResults)
	for _, r := range data.Results {
		if len(places) == MaxSearchResults {
			break
		}
		places = append(places, models.Place{
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Latitude:         r.Geometry.Location.Lat,
			Longitude:        r.Geometry.Location.Lng,
		})
	}
	return places, nil
}
