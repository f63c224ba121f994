package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Candle es el resumen OHLCV de un bucket de tiempo fijo, ya normalizado desde
// el array posicional del proveedor. Ningún componente después del extractor
// vuelve a tocar índices de columna.
type Candle struct {
	OpenTime  int64 // epoch ms, inicio del intervalo
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime int64 // epoch ms
}

// GameStatus es el estado de un partido según el proveedor deportivo.
type GameStatus string

const (
	StatusNone       GameStatus = ""
	StatusScheduled  GameStatus = "Scheduled"
	StatusInProgress GameStatus = "InProgress"
	StatusFinal      GameStatus = "Final"
	StatusCanceled   GameStatus = "Canceled"
	StatusPostponed  GameStatus = "Postponed"
	StatusDelayed    GameStatus = "Delayed"
	StatusSuspended  GameStatus = "Suspended"
)

// ParseGameStatus normaliza el string de estado del proveedor. Las variantes
// de final ("F/OT", "F/SO") colapsan a Final; un estado desconocido se
// conserva tal cual y el mapper lo tratará como no-final.
func ParseGameStatus(s string) GameStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled":
		return StatusScheduled
	case "inprogress", "in progress":
		return StatusInProgress
	case "final", "f/ot", "f/so":
		return StatusFinal
	case "canceled", "cancelled":
		return StatusCanceled
	case "postponed":
		return StatusPostponed
	case "delayed":
		return StatusDelayed
	case "suspended":
		return StatusSuspended
	}
	return GameStatus(s)
}

// IsFinal devuelve true solo para Final: el único estado que transiciona a un
// resultado decisivo.
func (s GameStatus) IsFinal() bool { return s == StatusFinal }

// Game es el box score normalizado de un partido.
type Game struct {
	GameID    int64
	Status    GameStatus
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int
}

// Winner devuelve la abreviación del equipo ganador, o "" en caso de empate.
func (g Game) Winner() string {
	switch {
	case g.HomeScore > g.AwayScore:
		return g.HomeTeam
	case g.AwayScore > g.HomeScore:
		return g.AwayTeam
	}
	return ""
}

// PlayerStat es la línea de stats de un jugador en un partido. Los campos
// numéricos del proveedor (Points, Goals, Assists, ...) se conservan en un map
// para no acoplar el dominio al deporte concreto.
type PlayerStat struct {
	Name  string
	Team  string
	Stats map[string]float64
}

// Stat busca un campo numérico por nombre, case-insensitive.
func (p PlayerStat) Stat(field string) (float64, bool) {
	if v, ok := p.Stats[field]; ok {
		return v, true
	}
	for k, v := range p.Stats {
		if strings.EqualFold(k, field) {
			return v, true
		}
	}
	return 0, false
}

// Evidence agrupa las observaciones que respaldan una evaluación de regla.
// Exactamente un subconjunto está poblado según el RuleKind: First (+Second)
// para comparaciones de velas, Series para umbrales sobre ventana, Game
// (+Players) para eventos deportivos.
type Evidence struct {
	First   *Candle
	Second  *Candle
	Series  []Candle
	Game    *Game
	Players []PlayerStat
}
