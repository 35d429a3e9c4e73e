package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Timestamps 1704153600, 1704240000, 1704326400 in the fixtures are the
// first three trading days of 2024 (Jan 2-4).

func newTestClient(server *httptest.Server) *Client {
	client := NewClient(zerolog.Nop())
	client.baseURL = server.URL
	client.backoffBase = time.Millisecond
	return client
}

func TestDailyHistory_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TSCO.L", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "5y", r.URL.Query().Get("range"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704153600,1704240000,1704326400],
			"indicators":{"quote":[{
				"close":[285.1,287.4,286.2],
				"volume":[14520000,13980000,15100000]
			}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	bars, err := client.DailyHistory(context.Background(), "TSCO.L", "5y")
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, Bar{Date: "2024-01-02", Close: 285.1, Volume: 14520000}, bars[0])
	assert.Equal(t, Bar{Date: "2024-01-03", Close: 287.4, Volume: 13980000}, bars[1])
	assert.Equal(t, Bar{Date: "2024-01-04", Close: 286.2, Volume: 15100000}, bars[2])
}

func TestDailyHistory_SkipsNullRowsKeepsZeroVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704153600,1704240000,1704326400],
			"indicators":{"quote":[{
				"close":[285.1,null,286.2],
				"volume":[14520000,13980000,0]
			}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	bars, err := client.DailyHistory(context.Background(), "TSCO.L", "1mo")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "2024-01-02", bars[0].Date)
	assert.Equal(t, "2024-01-04", bars[1].Date)
	assert.Zero(t, bars[1].Volume, "a reported zero volume is a real observation")
}

func TestDailyHistory_SkipsNullVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704153600,1704240000],
			"indicators":{"quote":[{
				"close":[285.1,287.4],
				"volume":[null,13980000]
			}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	bars, err := client.DailyHistory(context.Background(), "TSCO.L", "5d")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2024-01-03", bars[0].Date)
}

func TestDailyHistory_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.DailyHistory(context.Background(), "NOPE.L", "5y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestDailyHistory_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.DailyHistory(context.Background(), "TSCO.L", "5y")
	assert.Error(t, err)
}

func TestDailyHistory_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704153600],
			"indicators":{"quote":[{"close":[285.1],"volume":[14520000]}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	bars, err := client.DailyHistory(context.Background(), "TSCO.L", "5y")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 3, attempts)
}

func TestDailyHistory_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.DailyHistory(context.Background(), "TSCO.L", "5y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestDailyHistory_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	client.backoffBase = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.DailyHistory(ctx, "TSCO.L", "5y")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
