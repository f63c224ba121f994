package domain

import (
	"fmt"
	"time"
)

// TimeWindow es una ventana UTC absoluta en epoch millis: [StartMS, EndMS).
// Es el único vocabulario temporal que ven los adapters; la conversión desde
// reloj de pared ocurre una sola vez, en ResolveWindow.
type TimeWindow struct {
	StartMS int64
	EndMS   int64
}

// Start devuelve el inicio de la ventana como time.Time UTC.
func (w TimeWindow) Start() time.Time { return time.UnixMilli(w.StartMS).UTC() }

// End devuelve el fin (exclusivo) de la ventana como time.Time UTC.
func (w TimeWindow) End() time.Time { return time.UnixMilli(w.EndMS).UTC() }

// Contains devuelve true si el instante cae dentro de la ventana: inicio
// inclusivo, fin exclusivo.
func (w TimeWindow) Contains(ms int64) bool { return ms >= w.StartMS && ms < w.EndMS }

// dstProbes son los offsets con los que se sondea un instante local repetido.
// Cubren transiciones de una hora y de media hora.
var dstProbes = []time.Duration{-time.Hour, time.Hour, -30 * time.Minute, 30 * time.Minute}

// ResolveWindow convierte la referencia de reloj de pared de un mercado en una
// ventana UTC absoluta. Es una función pura del argumento: misma entrada,
// misma ventana, sin importar cuándo ni dónde corra el proceso.
//
// date es "2006-01-02", timeOfDay acepta "15:04" o "15:04:05" y timezone es un
// nombre IANA. duration <= 0 cae al intervalo de vela más pequeño (un minuto).
//
// Los instantes locales sin conversión única se rechazan con
// AmbiguousLocalTimeError: los que el salto de DST elimina (nonexistent) y los
// que el repliegue repite (ambiguous).
func ResolveWindow(date, timeOfDay, timezone string, duration time.Duration) (TimeWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("domain.ResolveWindow: load zone %q: %w", timezone, err)
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("domain.ResolveWindow: parse date %q: %w", date, err)
	}

	clock, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("domain.ResolveWindow: %w", err)
	}

	local := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, loc)

	// time.Date normaliza los instantes inexistentes moviéndolos a través del
	// salto: si el reloj de pared resultante no coincide con el pedido, el
	// instante fue eliminado por la transición.
	if local.Hour() != clock.Hour() || local.Minute() != clock.Minute() ||
		local.Day() != day.Day() {
		return TimeWindow{}, &AmbiguousLocalTimeError{
			Local:  date + " " + timeOfDay,
			Zone:   timezone,
			Reason: "nonexistent",
		}
	}

	// Un instante repetido tiene un vecino con el mismo reloj de pared y
	// distinto offset UTC a una transición de distancia.
	for _, probe := range dstProbes {
		neighbor := local.Add(probe)
		if neighbor.Hour() == local.Hour() && neighbor.Minute() == local.Minute() &&
			neighbor.Day() == local.Day() && !neighbor.Equal(local) {
			return TimeWindow{}, &AmbiguousLocalTimeError{
				Local:  date + " " + timeOfDay,
				Zone:   timezone,
				Reason: "ambiguous",
			}
		}
	}

	if duration <= 0 {
		duration = time.Minute
	}

	start := local.UnixMilli()
	return TimeWindow{StartMS: start, EndMS: start + duration.Milliseconds()}, nil
}

// parseTimeOfDay acepta "15:04" y "15:04:05".
func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time of day %q: want 15:04 or 15:04:05", s)
}
