package sources_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/resolvebot/internal/adapters/sources"
	"github.com/alejandrodnm/resolvebot/internal/domain"
)

const (
	t0 = int64(1718452800000) // 2024-06-15 12:00:00 UTC
	t1 = t0 + 60_000
)

// klinesBody construye un payload de klines con una fila por openTime dado.
func klinesBody(opens ...int64) string {
	body := "["
	for i, ts := range opens {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`[%d,"100.0","105.0","99.0","102.0","12.5",%d]`, ts, ts+59_999)
	}
	return body + "]"
}

func fastClient(name, base string) *sources.Client {
	return sources.NewClient(name, base, sources.WithRetries(0, time.Millisecond))
}

func window(startMS, endMS int64) domain.TimeWindow {
	return domain.TimeWindow{StartMS: startMS, EndMS: endMS}
}

func TestKlinesChain_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer srv.Close()

	chain := sources.NewKlinesChain(false, fastClient("primary", srv.URL))
	candle, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.AttemptSuccess, attempts[0].Status)
	assert.Equal(t, t0, candle.OpenTime)
	assert.True(t, candle.Close.Equal(decimal.RequireFromString("102.0")))
	assert.True(t, candle.High.Equal(decimal.RequireFromString("105.0")))
}

func TestKlinesChain_ShortCircuit(t *testing.T) {
	var primaryCalls atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer proxy.Close()
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer primary.Close()

	chain := sources.NewKlinesChain(false,
		fastClient("proxy", proxy.URL), fastClient("primary", primary.URL))
	_, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	require.Len(t, attempts, 1, "tras el éxito del proxy no se prueba el primario")
	assert.Equal(t, "proxy", attempts[0].Source)
	assert.Equal(t, int32(0), primaryCalls.Load(), "el primario nunca debe ser invocado")
}

func TestKlinesChain_FallbackToPrimary(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer proxy.Close()
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer primary.Close()

	chain := sources.NewKlinesChain(false,
		fastClient("proxy", proxy.URL), fastClient("primary", primary.URL))
	candle, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.AttemptHTTPError, attempts[0].Status)
	assert.Equal(t, domain.AttemptSuccess, attempts[1].Status)
	assert.Equal(t, t0, candle.OpenTime)
	assert.True(t, domain.FallbackUsed(attempts), "resolución degradada: respondió el fallback")
}

func TestKlinesChain_AllSourcesDown(t *testing.T) {
	down := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	proxy := httptest.NewServer(down)
	defer proxy.Close()
	primary := httptest.NewServer(down)
	defer primary.Close()

	chain := sources.NewKlinesChain(false,
		fastClient("proxy", proxy.URL), fastClient("primary", primary.URL))
	_, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.Error(t, err)
	var exhausted *domain.ChainExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Attempts, 2)
	assert.Len(t, attempts, 2)
}

func TestKlinesChain_RetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer srv.Close()

	client := sources.NewClient("primary", srv.URL, sources.WithRetries(2, time.Millisecond))
	chain := sources.NewKlinesChain(false, client)
	_, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "500 es reintentable contra el mismo endpoint")
	assert.Len(t, attempts, 1, "los reintentos no generan attempts extra")
}

func TestKlinesChain_PermanentClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := sources.NewClient("primary", srv.URL, sources.WithRetries(3, time.Millisecond))
	chain := sources.NewKlinesChain(false, client)
	_, _, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx es permanente: un solo intento")
}

func TestKlinesChain_EmptyPayloadAdvancesChain(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer proxy.Close()
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer primary.Close()

	chain := sources.NewKlinesChain(false,
		fastClient("proxy", proxy.URL), fastClient("primary", primary.URL))
	candle, attempts, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.AttemptEmptyPayload, attempts[0].Status)
	assert.Equal(t, t0, candle.OpenTime)
}

func TestKlinesChain_CandlesSeriesInWindow(t *testing.T) {
	// Tres velas, solo las dos primeras dentro de la ventana [t0, t0+2m)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(t0, t0+60_000, t0+120_000))
	}))
	defer srv.Close()

	chain := sources.NewKlinesChain(false, fastClient("primary", srv.URL))
	candles, _, err := chain.Candles(context.Background(), "BTCUSDT", "1m", window(t0, t0+120_000))

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, t0, candles[0].OpenTime)
	assert.Equal(t, t0+60_000, candles[1].OpenTime)
}

func TestKlinesChain_RaceMode(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(t0))
	}))
	defer fast.Close()

	chain := sources.NewKlinesChain(true,
		fastClient("proxy", slow.URL), fastClient("primary", fast.URL))

	start := time.Now()
	candle, _, err := chain.CandleAt(context.Background(), "BTCUSDT", "1m", window(t0, t1))

	require.NoError(t, err)
	assert.Equal(t, t0, candle.OpenTime)
	assert.Less(t, time.Since(start), 2*time.Second,
		"el éxito rápido debe ganar sin esperar al endpoint lento")
}
