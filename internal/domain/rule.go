package domain

import (
	"fmt"
	"strings"
)

// RuleResult es la categoría resultante de evaluar el predicado del mercado.
type RuleResult string

const (
	ResultAWins           RuleResult = "a_wins"
	ResultBWins           RuleResult = "b_wins"
	ResultTie             RuleResult = "tie"
	ResultThresholdMet    RuleResult = "threshold_met"
	ResultThresholdNotMet RuleResult = "threshold_not_met"
	ResultEventTrue       RuleResult = "event_true"
	ResultEventFalse      RuleResult = "event_false"
	ResultNone            RuleResult = "" // sin evaluación (datos no disponibles)
)

// EvaluateRule evalúa el predicado declarativo del mercado sobre la evidencia
// recolectada. Es una función pura: toda la I/O ocurrió antes, en los adapters.
//
// Semántica por kind:
//   - compare_two_points: close(Second) vs close(First); estrictamente mayor →
//     a_wins, estrictamente menor → b_wins, igual → tie.
//   - open_close_direction: close vs open de la misma vela, misma regla de empate.
//   - threshold_over_window: extremo de la serie vs umbral, frontera inclusiva.
//   - event_occurred: requiere Status == Final (otros estados los reconcilia el
//     OutcomeMapper, no esta función); equipo ganador y stat estricto (>).
func EvaluateRule(kind RuleKind, params RuleParams, ev Evidence) (RuleResult, error) {
	switch kind {
	case RuleCompareTwoPoints:
		if ev.First == nil || ev.Second == nil {
			return ResultNone, fmt.Errorf("domain.EvaluateRule: %s needs two candles", kind)
		}
		return compareDirection(ev.Second.Close.Cmp(ev.First.Close)), nil

	case RuleOpenCloseDirection:
		if ev.First == nil {
			return ResultNone, fmt.Errorf("domain.EvaluateRule: %s needs one candle", kind)
		}
		return compareDirection(ev.First.Close.Cmp(ev.First.Open)), nil

	case RuleThresholdOverWindow:
		if len(ev.Series) == 0 {
			return ResultNone, fmt.Errorf("domain.EvaluateRule: %s needs a candle series", kind)
		}
		return evaluateThreshold(params, ev.Series), nil

	case RuleEventOccurred:
		if ev.Game == nil {
			return ResultNone, fmt.Errorf("domain.EvaluateRule: %s needs a game", kind)
		}
		if !ev.Game.Status.IsFinal() {
			return ResultNone, fmt.Errorf("domain.EvaluateRule: game not final (status %q)", ev.Game.Status)
		}
		return evaluateEvent(params, *ev.Game, ev.Players), nil
	}
	return ResultNone, fmt.Errorf("domain.EvaluateRule: unknown rule kind %q", kind)
}

// compareDirection traduce el signo de decimal.Cmp a RuleResult.
func compareDirection(cmp int) RuleResult {
	switch {
	case cmp > 0:
		return ResultAWins
	case cmp < 0:
		return ResultBWins
	}
	return ResultTie
}

// evaluateThreshold compara el extremo de la serie contra el umbral.
// La frontera es inclusiva en ambas direcciones: "alcanzó $X o más" cuenta
// exactamente $X como alcanzado.
func evaluateThreshold(params RuleParams, series []Candle) RuleResult {
	if params.Direction == DirectionLow {
		low := series[0].Low
		for _, c := range series[1:] {
			if c.Low.LessThan(low) {
				low = c.Low
			}
		}
		if low.LessThanOrEqual(params.Threshold) {
			return ResultThresholdMet
		}
		return ResultThresholdNotMet
	}

	high := series[0].High
	for _, c := range series[1:] {
		if c.High.GreaterThan(high) {
			high = c.High
		}
	}
	if high.GreaterThanOrEqual(params.Threshold) {
		return ResultThresholdMet
	}
	return ResultThresholdNotMet
}

// evaluateEvent comprueba la condición compuesta: el equipo configurado ganó
// y, si hay jugador configurado, su stat superó estrictamente el umbral.
func evaluateEvent(params RuleParams, game Game, players []PlayerStat) RuleResult {
	if !strings.EqualFold(game.Winner(), params.WinnerTeam) {
		return ResultEventFalse
	}

	if params.PlayerName == "" {
		return ResultEventTrue
	}

	threshold, _ := params.Threshold.Float64()
	for _, p := range players {
		if !strings.EqualFold(p.Name, params.PlayerName) {
			continue
		}
		if v, ok := p.Stat(params.StatField); ok && v > threshold {
			return ResultEventTrue
		}
		return ResultEventFalse
	}
	// Jugador no presente en el stat line → la condición compuesta no se cumple.
	return ResultEventFalse
}
