package sources

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// fetchWithFallback prueba cada cliente estrictamente en orden y devuelve el
// primer éxito sin tocar los endpoints posteriores. Registra un FetchAttempt
// por endpoint probado. Si todos fallan, devuelve ChainExhaustedError con
// todos los intentos.
//
// Los errores reintentables ya se agotaron dentro del Client; aquí cualquier
// error (permanente, payload vacío, forma de datos) hace avanzar la cadena.
func fetchWithFallback[T any](ctx context.Context, clients []*Client, fetch func(context.Context, *Client) (T, error)) (T, []domain.FetchAttempt, error) {
	var zero T
	attempts := make([]domain.FetchAttempt, 0, len(clients))

	for _, c := range clients {
		start := time.Now()
		v, err := fetch(ctx, c)
		attempts = append(attempts, newAttempt(c.Name(), start, err))

		if err == nil {
			return v, attempts, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return zero, attempts, &domain.ChainExhaustedError{Attempts: attempts}
}

// fetchRacing lanza todos los endpoints en paralelo y devuelve el primer
// éxito, cancelando los requests en vuelo. Reduce la latencia en el peor caso
// de la suma al máximo de las latencias, a cambio de tráfico redundante.
func fetchRacing[T any](ctx context.Context, clients []*Client, fetch func(context.Context, *Client) (T, error)) (T, []domain.FetchAttempt, error) {
	var zero T
	if len(clients) == 1 {
		return fetchWithFallback(ctx, clients, fetch)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value   T
		attempt domain.FetchAttempt
		err     error
	}

	results := make(chan outcome, len(clients))
	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			start := time.Now()
			v, err := fetch(raceCtx, c)
			results <- outcome{value: v, attempt: newAttempt(c.Name(), start, err), err: err}
		}(c)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	bySource := make(map[string]domain.FetchAttempt, len(clients))
	var winner *T
	for out := range results {
		bySource[out.attempt.Source] = out.attempt
		if out.err == nil && winner == nil {
			v := out.value
			winner = &v
			cancel() // cancela los requests restantes; drenamos sus attempts
		}
	}

	// Reordenar al orden de la cadena: el primer intento listado es siempre la
	// fuente preferida, que es lo que FallbackUsed inspecciona.
	attempts := make([]domain.FetchAttempt, 0, len(clients))
	for _, c := range clients {
		if a, ok := bySource[c.Name()]; ok {
			attempts = append(attempts, a)
		}
	}

	if winner != nil {
		return *winner, attempts, nil
	}
	return zero, attempts, &domain.ChainExhaustedError{Attempts: attempts}
}

// newAttempt clasifica el desenlace de un intento para diagnóstico.
func newAttempt(source string, start time.Time, err error) domain.FetchAttempt {
	a := domain.FetchAttempt{
		Source:    source,
		Status:    domain.AttemptSuccess,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return a
	}

	a.Detail = err.Error()

	var netErr *domain.NetworkError
	var httpErr *domain.HTTPError
	switch {
	case errors.Is(err, domain.ErrEmptyPayload), errors.Is(err, domain.ErrNoCandleInWindow):
		a.Status = domain.AttemptEmptyPayload
	case errors.As(err, &netErr):
		a.Status = domain.AttemptNetworkError
	case errors.As(err, &httpErr):
		a.Status = domain.AttemptHTTPError
	default:
		// Errores de forma de datos (game no encontrado, fila malformada):
		// el endpoint respondió pero el payload no sirve.
		a.Status = domain.AttemptHTTPError
	}
	return a
}
