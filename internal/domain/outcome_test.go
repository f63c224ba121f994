package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

func outcomes() domain.OutcomeMap {
	return domain.OutcomeMap{
		Results: map[domain.RuleResult]string{
			domain.ResultAWins:        "p2",
			domain.ResultBWins:        "p1",
			domain.ResultTie:          "p3",
			domain.ResultThresholdMet: "p2",
			domain.ResultEventTrue:    "p2",
			domain.ResultEventFalse:   "p1",
		},
		Unresolved: "p4",
		TooEarly:   "p4-wait",
		Split:      "p3",
	}
}

func TestOutcomeMap_Decisive(t *testing.T) {
	m := outcomes()

	assert.Equal(t, "p2", m.Resolve(domain.ResultAWins, domain.StatusNone, false))
	assert.Equal(t, "p1", m.Resolve(domain.ResultBWins, domain.StatusNone, false))
	assert.Equal(t, "p2", m.Resolve(domain.ResultEventTrue, domain.StatusFinal, false))
}

func TestOutcomeMap_TieNeverAWin(t *testing.T) {
	m := outcomes()
	token := m.Resolve(domain.ResultTie, domain.StatusNone, false)

	assert.Equal(t, "p3", token)
	assert.NotEqual(t, m.Results[domain.ResultAWins], token)
	assert.NotEqual(t, m.Results[domain.ResultBWins], token)
}

func TestOutcomeMap_ExhaustedBeatsEverything(t *testing.T) {
	m := outcomes()

	// Cadena agotada → unresolved, sin importar resultado parcial ni estado.
	assert.Equal(t, "p4", m.Resolve(domain.ResultAWins, domain.StatusFinal, true))
	assert.Equal(t, "p4", m.Resolve(domain.ResultNone, domain.StatusInProgress, true))
}

func TestOutcomeMap_NonFinalStates(t *testing.T) {
	m := outcomes()

	for _, status := range []domain.GameStatus{
		domain.StatusScheduled,
		domain.StatusInProgress,
		domain.StatusDelayed,
		domain.StatusSuspended,
		domain.StatusPostponed,
	} {
		assert.Equal(t, "p4-wait", m.Resolve(domain.ResultNone, status, false),
			"estado %s debe ser too-early", status)
	}
}

func TestOutcomeMap_Canceled(t *testing.T) {
	m := outcomes()
	assert.Equal(t, "p3", m.Resolve(domain.ResultNone, domain.StatusCanceled, false))
}

func TestOutcomeMap_UnknownStatusIsTooEarly(t *testing.T) {
	m := outcomes()
	assert.Equal(t, "p4-wait", m.Resolve(domain.ResultNone, domain.GameStatus("HalfTime"), false))
}

func TestOutcomeMap_MissingMappingFallsToSplitOrUnresolved(t *testing.T) {
	m := domain.OutcomeMap{
		Results:    map[domain.RuleResult]string{domain.ResultThresholdMet: "p2"},
		Unresolved: "p4",
		Split:      "p3",
	}

	// Sin mapeo explícito, not-met cae al 50/50, nunca a un ganador.
	assert.Equal(t, "p3", m.Resolve(domain.ResultThresholdNotMet, domain.StatusNone, false))

	m.Split = ""
	assert.Equal(t, "p4", m.Resolve(domain.ResultThresholdNotMet, domain.StatusNone, false))
}

func TestParseGameStatus(t *testing.T) {
	assert.Equal(t, domain.StatusFinal, domain.ParseGameStatus("Final"))
	assert.Equal(t, domain.StatusFinal, domain.ParseGameStatus("F/OT"))
	assert.Equal(t, domain.StatusCanceled, domain.ParseGameStatus("Cancelled"))
	assert.Equal(t, domain.StatusInProgress, domain.ParseGameStatus("InProgress"))
	assert.False(t, domain.ParseGameStatus("Weird").IsFinal())
}
