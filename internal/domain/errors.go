package domain

import (
	"errors"
	"fmt"
)

// Ausencias tipadas: un endpoint respondió bien pero no trae lo que el mercado
// necesita. Hacen avanzar la cadena de fallback igual que un fallo de red.
var (
	// ErrEmptyPayload indica una respuesta 2xx con un array vacío.
	ErrEmptyPayload = errors.New("source returned an empty payload")

	// ErrNoCandleInWindow indica que ninguna vela del payload cae dentro de la
	// ventana pedida. Nunca se sustituye por una vela vecina.
	ErrNoCandleInWindow = errors.New("no candle within the requested window")
)

// NetworkError envuelve un fallo de transporte (conexión, DNS, timeout).
// Siempre reintentable contra el mismo endpoint.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable siempre es true: los fallos de transporte son transitorios.
func (e *NetworkError) Retryable() bool { return true }

// HTTPError es una respuesta no-2xx (o un body indescifrable) del endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// Retryable devuelve true para rate limiting y errores de servidor; el resto
// de 4xx es permanente y no merece reintento.
func (e *HTTPError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// AmbiguousLocalTimeError indica que la referencia de reloj de pared del
// mercado no tiene una conversión UTC única: o no existe (salto de DST hacia
// adelante) o existe dos veces (repliegue). La resolución se rechaza en vez de
// adivinar un instante.
type AmbiguousLocalTimeError struct {
	Local  string // "2006-01-02 15:04" tal como vino en el mercado
	Zone   string // nombre IANA
	Reason string // "nonexistent" | "ambiguous"
}

func (e *AmbiguousLocalTimeError) Error() string {
	return fmt.Sprintf("local time %s in %s is %s", e.Local, e.Zone, e.Reason)
}

// GameNotFoundError indica que los partidos de la fecha no contienen
// exactamente un match para el par de equipos pedido.
type GameNotFoundError struct {
	HomeTeam string
	AwayTeam string
	Matches  int
}

func (e *GameNotFoundError) Error() string {
	return fmt.Sprintf("game %s vs %s: %d matches in provider payload, want exactly 1",
		e.HomeTeam, e.AwayTeam, e.Matches)
}

// ChainExhaustedError indica que todos los endpoints de la cadena fallaron.
// Conserva los intentos para diagnóstico; el mapper lo traduce al token
// "no se pudo resolver".
type ChainExhaustedError struct {
	Attempts []FetchAttempt
}

func (e *ChainExhaustedError) Error() string {
	return fmt.Sprintf("all %d sources exhausted", len(e.Attempts))
}
