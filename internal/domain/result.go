package domain

import "time"

// AttemptStatus clasifica el desenlace de un intento contra un endpoint.
type AttemptStatus string

const (
	AttemptSuccess      AttemptStatus = "success"
	AttemptHTTPError    AttemptStatus = "http_error"
	AttemptNetworkError AttemptStatus = "network_error"
	AttemptEmptyPayload AttemptStatus = "empty_payload"
)

// FetchAttempt es el registro de diagnóstico de un endpoint probado. Se retiene
// solo para observabilidad; la corrección nunca depende de él.
type FetchAttempt struct {
	Source    string // nombre del endpoint, ej "proxy" | "primary"
	Status    AttemptStatus
	LatencyMS int64
	Detail    string // mensaje de error, vacío en éxito
}

// Failed devuelve true si el intento no terminó en éxito.
func (a FetchAttempt) Failed() bool { return a.Status != AttemptSuccess }

// ResolutionResult es el único artefacto que el motor devuelve al caller.
// Una evaluación de MarketSpec produce exactamente uno.
type ResolutionResult struct {
	ID           string // uuid de la corrida, para journal y diagnóstico
	Market       MarketSpec
	Window       TimeWindow
	OutcomeToken string
	RuleResult   RuleResult
	Evidence     Evidence
	Attempts     []FetchAttempt

	// Degraded es true si la fuente preferida falló y respondió un fallback,
	// o si se emitió un token centinela por indisponibilidad de datos.
	Degraded bool

	ResolvedAt time.Time
}

// FallbackUsed devuelve true si la fuente preferida no fue la que respondió.
// Las cadenas listan los intentos en el orden de sus endpoints, con la fuente
// preferida primero: si ese intento falló, la respuesta (si la hubo) vino de
// un fallback.
func FallbackUsed(attempts []FetchAttempt) bool {
	return len(attempts) > 0 && attempts[0].Failed()
}
