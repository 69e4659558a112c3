package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocode_ParsesCenter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Kenner, LA.json", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		// Mapbox centers are [lng, lat].
		_, _ = w.Write([]byte(`{"features":[{"center":[-90.2532,29.9847]}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-token", &Options{BaseURL: srv.URL, Sleep: func(time.Duration) {}})

	coords, err := client.Geocode(context.Background(), "Kenner, LA")
	require.NoError(t, err)
	assert.Equal(t, 29.9847, coords.Latitude)
	assert.Equal(t, -90.2532, coords.Longitude)
}

func TestGeocode_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-token", &Options{BaseURL: srv.URL, Sleep: func(time.Duration) {}})

	_, err := client.Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGeocode_EmptyQuery(t *testing.T) {
	client := NewClient("test-token", &Options{BaseURL: "http://unused", Sleep: func(time.Duration) {}})
	_, err := client.Geocode(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGeocode_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-token", &Options{BaseURL: srv.URL, Sleep: func(time.Duration) {}})

	_, err := client.Geocode(context.Background(), "Kenner, LA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestGeocode_PacesConsecutiveCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"center":[-90.0,30.0]}]}`))
	}))
	defer srv.Close()

	var slept []time.Duration
	client := NewClient("test-token", &Options{
		BaseURL: srv.URL,
		Pace:    100 * time.Millisecond,
		Sleep:   func(d time.Duration) { slept = append(slept, d) },
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.Geocode(ctx, "Kenner, LA")
		require.NoError(t, err)
	}

	// The first call sees a zero lastCall far in the past; each subsequent
	// call has to wait out the remainder of the pace interval.
	require.Len(t, slept, 2)
	for _, d := range slept {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
