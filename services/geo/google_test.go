package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "40.730800,-73.997300", r.URL.Query().Get("latlng"))
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Washington Sq, New York, NY"},{"formatted_address":"other"}]}`))
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("test-key", srv.URL)
	addr, err := g.ReverseGeocode(context.Background(), 40.7308, -73.9973)
	require.NoError(t, err)
	assert.Equal(t, "Washington Sq, New York, NY", addr)
}

func TestGoogleStatusMapping(t *testing.T) {
	body := `{"status":"ZERO_RESULTS","results":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()
	g := NewGoogleGeocoder("k", srv.URL)

	_, err := g.ReverseGeocode(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrNoResults)

	body = `{"status":"REQUEST_DENIED","error_message":"bad key"}`
	_, err = g.TextSearch(context.Background(), "coffee")
	assert.ErrorIs(t, err, ErrGeocodeFailed)
}

func TestGoogleHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewGoogleGeocoder("k", srv.URL).ReverseGeocode(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrGeocodeFailed)
}

func TestGoogleTextSearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		assert.Equal(t, "bobst library", r.URL.Query().Get("query"))
		w.Write([]byte(`{"status":"OK","results":[
			{"name":"A","formatted_address":"a","geometry":{"location":{"lat":1,"lng":2}}},
			{"name":"B","formatted_address":"b","geometry":{"location":{"lat":1,"lng":2}}},
			{"name":"C","formatted_address":"c","geometry":{"location":{"lat":1,"lng":2}}},
			{"name":"D","formatted_address":"d","geometry":{"location":{"lat":1,"lng":2}}},
			{"name":"E","formatted_address":"e","geometry":{"location":{"lat":1,"lng":2}}},
			{"name":"F","formatted_address":"f","geometry":{"location":{"lat":1,"lng":2}}}
		]}`))
	}))
	defer srv.Close()

	places, err := NewGoogleGeocoder("k", srv.URL).TextSearch(context.Background(), "bobst library")
	require.NoError(t, err)
	require.Len(t, places, MaxSearchResults)
	assert.Equal(t, "A", places[0].Name)
	assert.Equal(t, 2.0, places[0].Longitude)
}

func TestGoogleAvailable(t *testing.T) {
	assert.False(t, NewGoogleGeocoder("", "").Available())
	assert.True(t, NewGoogleGeocoder("k", "").Available())
}
