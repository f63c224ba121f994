package domain

// OutcomeMap es la traducción configurada de categorías de evaluación a tokens
// de outcome del mercado (convencionalmente p1..p4), más los tokens centinela
// para los estados de disponibilidad de datos.
type OutcomeMap struct {
	// Results traduce cada RuleResult decisivo a su token.
	Results map[RuleResult]string

	// Unresolved se emite cuando la cadena de fuentes se agotó o la ventana no
	// pudo resolverse: "no se pudo resolver", nunca un ganador inferido.
	Unresolved string

	// TooEarly se emite cuando el partido aún no terminó (Scheduled,
	// InProgress, Delayed, Suspended, Postponed). Distinto de Unresolved para
	// que el consumidor distinga transitorio de permanente.
	TooEarly string

	// Split es el token "50/50", emitido en empates sin mapeo propio y en
	// partidos cancelados.
	Split string
}

// Resolve reconcilia disponibilidad de datos con el resultado de la regla y
// devuelve el token final. Es la única pieza de lógica de negocio del mapper:
//
//   - cadena agotada → Unresolved, sin importar cualquier dato parcial
//   - partido no final (Scheduled/InProgress/Delayed/Suspended/Postponed) →
//     TooEarly; Postponed exige re-chequeo en una ventana posterior, no se
//     adivina un ganador
//   - Canceled → Split
//   - en cualquier otro caso, el RuleResult se traduce vía Results
//
// No hay transición de vuelta a Scheduled: los estados no finales son
// absorbentes dentro de una evaluación.
func (m OutcomeMap) Resolve(result RuleResult, status GameStatus, exhausted bool) string {
	if exhausted {
		return m.Unresolved
	}

	switch status {
	case StatusNone, StatusFinal:
		// precio, o partido terminado: cae a la traducción de la regla
	case StatusCanceled:
		return m.Split
	default:
		// Scheduled, InProgress, Delayed, Suspended, Postponed y cualquier
		// estado desconocido del proveedor: demasiado pronto para resolver.
		return m.TooEarly
	}

	if token, ok := m.Results[result]; ok {
		return token
	}

	// Empates y umbrales no alcanzados sin mapeo explícito caen al token 50/50
	// si existe; si no, a Unresolved. Nunca a un ganador.
	switch result {
	case ResultTie, ResultThresholdNotMet, ResultEventFalse:
		if m.Split != "" {
			return m.Split
		}
	}
	return m.Unresolved
}
