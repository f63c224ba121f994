package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind identifica el predicado declarativo de un mercado.
type RuleKind string

const (
	// RuleCompareTwoPoints compara el close de dos velas separadas por la
	// duración de la ventana (precio sube vs baja).
	RuleCompareTwoPoints RuleKind = "compare_two_points"

	// RuleOpenCloseDirection compara close contra open de la misma vela.
	// Variante de un solo fetch.
	RuleOpenCloseDirection RuleKind = "open_close_direction"

	// RuleThresholdOverWindow compara el extremo (max high o min low) de todas
	// las velas de la ventana contra un umbral, con frontera inclusiva (>=).
	RuleThresholdOverWindow RuleKind = "threshold_over_window"

	// RuleEventOccurred evalúa una condición compuesta sobre un partido
	// finalizado: equipo ganador y, opcionalmente, stat de jugador con
	// comparación estricta (>).
	RuleEventOccurred RuleKind = "event_occurred"
)

// Valid devuelve true si el kind es uno de los soportados.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleCompareTwoPoints, RuleOpenCloseDirection, RuleThresholdOverWindow, RuleEventOccurred:
		return true
	}
	return false
}

// IsSports devuelve true si el kind se evalúa sobre datos deportivos.
func (k RuleKind) IsSports() bool { return k == RuleEventOccurred }

// ThresholdDirection indica qué extremo de la ventana se compara con el umbral.
type ThresholdDirection string

const (
	DirectionHigh ThresholdDirection = "high" // max(high) >= threshold
	DirectionLow  ThresholdDirection = "low"  // min(low) <= threshold
)

// WindowSpec es la referencia de reloj de pared del mercado, tal como viene en
// la definición declarativa. Se resuelve una vez a TimeWindow por evaluación.
type WindowSpec struct {
	Date      string        // "2006-01-02" en la zona del mercado
	TimeOfDay string        // "15:04" o "15:04:05"
	Timezone  string        // nombre IANA, ej "America/New_York"
	Duration  time.Duration // 0 → el intervalo de vela más pequeño del proveedor
}

// Resolve convierte la referencia local en una ventana UTC absoluta.
func (w WindowSpec) Resolve() (TimeWindow, error) {
	return ResolveWindow(w.Date, w.TimeOfDay, w.Timezone, w.Duration)
}

// RuleParams son los parámetros numéricos y de identidad del predicado.
// Solo los campos relevantes para el RuleKind del mercado están poblados.
type RuleParams struct {
	Threshold decimal.Decimal    // umbral de precio o de stat
	Direction ThresholdDirection // para threshold_over_window

	HomeTeam   string // abreviación del proveedor, ej "NYY"
	AwayTeam   string
	WinnerTeam string // equipo que debe ganar para EVENT_TRUE
	PlayerName string // condición compuesta opcional: stat del jugador
	StatField  string // campo numérico del stat line, ej "Points"
}

// MarketSpec es la definición inmutable de una pregunta resoluble. La crea la
// configuración; el motor nunca la muta.
type MarketSpec struct {
	Subject  string // símbolo de precio ("BTCUSDT") o identificador del partido
	Interval string // intervalo de vela del proveedor: "1m", "1h", ...
	Window   WindowSpec
	RuleKind RuleKind
	Rule     RuleParams
	Outcomes OutcomeMap
}

// CandleInterval devuelve el intervalo de vela como duración.
// Si Interval está vacío o es inválido, devuelve un minuto.
func (s MarketSpec) CandleInterval() time.Duration {
	d, err := ParseInterval(s.Interval)
	if err != nil {
		return time.Minute
	}
	return d
}

// intervalos soportados por los proveedores de klines.
var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseInterval convierte un intervalo de vela de proveedor a duración.
func ParseInterval(s string) (time.Duration, error) {
	if d, ok := intervals[s]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("domain.ParseInterval: unsupported interval %q", s)
}
