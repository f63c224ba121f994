package sources

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond

	// Límite conservador por endpoint; los proveedores públicos de klines
	// permiten bastante más, pero una resolución hace pocos requests.
	requestsPerSec = 10
)

// Client es el cliente HTTP de un único endpoint de datos, con rate limiting,
// backoff exponencial y clasificación tipada de fallos. Cada fetch es
// independiente: sin caché local, siempre datos frescos.
type Client struct {
	name       string // identificador para FetchAttempt, ej "proxy" | "primary"
	base       string
	http       *http.Client
	limiter    *rate.Limiter
	keyHeader  string // header de autenticación opcional
	apiKey     string
	maxRetries int
	retryWait  time.Duration
}

// Option configura un Client.
type Option func(*Client)

// WithAPIKey añade un header de autenticación a cada request.
func WithAPIKey(header, key string) Option {
	return func(c *Client) {
		c.keyHeader = header
		c.apiKey = key
	}
}

// WithTimeout cambia el timeout por intento.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries ajusta el número de reintentos y la espera base del backoff.
func WithRetries(retries int, wait time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = retries
		c.retryWait = wait
	}
}

// NewClient crea un Client para el base URL dado. name identifica el endpoint
// en los FetchAttempt de diagnóstico.
func NewClient(name, base string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		base:       base,
		http:       &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(requestsPerSec, 5),
		maxRetries: maxRetries,
		retryWait:  baseRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name devuelve el identificador del endpoint.
func (c *Client) Name() string { return c.name }

// getJSON hace un GET con retries y decodifica la respuesta en out.
//
// Clasificación: 2xx con JSON parseable → éxito; 429 y 5xx → reintentable con
// backoff; otros 4xx → *domain.HTTPError permanente sin reintentar; fallo de
// red o timeout → *domain.NetworkError tras agotar reintentos.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.NetworkError{Err: err}
		}

		resp, err := c.do(ctx, u)
		if err != nil {
			lastErr = &domain.NetworkError{Err: err}
			if attempt == c.maxRetries {
				return lastErr
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &domain.HTTPError{Status: resp.StatusCode}
			if attempt == c.maxRetries {
				return lastErr
			}
			slog.Debug("retryable status from source",
				"source", c.name, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &domain.HTTPError{Status: resp.StatusCode, Body: string(body)}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &domain.NetworkError{Err: err}
			if attempt == c.maxRetries {
				return lastErr
			}
			c.sleep(ctx, attempt)
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			// JSON malformado no es reintentable: el endpoint se considera
			// fallido y la cadena avanza.
			return &domain.HTTPError{Status: resp.StatusCode, Body: "unparseable body: " + err.Error()}
		}
		return nil
	}
	return lastErr
}

// do emite un único GET. El body queda abierto para el caller.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}
	return c.http.Do(req)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
