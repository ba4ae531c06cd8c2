package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		APIKey:          "secret",
		BaseURL:         srv.URL,
		RequestTimeout:  time.Second,
		RequestsPerSec:  100,
		MaxRetries:      1,
		MaxRetryTimeout: time.Second,
	})
}

func TestDailyCloses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "AAPL", q.Get("symbol"))
		assert.Equal(t, "1day", q.Get("interval"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-31", q.Get("end_date"))
		assert.Equal(t, "secret", q.Get("apikey"))
		w.Write([]byte(`{
			"meta": {"symbol": "AAPL", "interval": "1day"},
			"values": [
				{"datetime": "2024-01-03", "open": "184.2", "close": "184.25"},
				{"datetime": "2024-01-02", "open": "187.1", "close": "185.64"}
			],
			"status": "ok"
		}`))
	})

	bars, err := c.DailyCloses(context.Background(), "AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []model.PriceBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 185.64},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 184.25},
	}, bars)
}

func TestDailyClosesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 400, "message": "symbol not found", "status": "error"}`))
	})

	_, err := c.DailyCloses(context.Background(), "NOPE", time.Now().AddDate(0, -1, 0), time.Now())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestDailyClosesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {"symbol": "AAPL"}, "values": [], "status": "ok"}`))
	})

	_, err := c.DailyCloses(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	assert.ErrorContains(t, err, "empty data")
}

func TestSector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "known", body: `{"symbol": "AAPL", "sector": "Technology"}`, want: "Technology"},
		{name: "missing", body: `{"symbol": "XYZ"}`, want: model.UnknownSector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/profile", r.URL.Path)
				w.Write([]byte(tt.body))
			})
			sector, err := c.Sector(context.Background(), "AAPL")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sector)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-15 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("15/03/2024")
	assert.Error(t, err)
}
