package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/resolvebot/internal/domain"
	"github.com/alejandrodnm/resolvebot/internal/resolver"
)

// --- Mocks de ports ---

type candleProviderMock struct {
	candles  []domain.Candle // servidas en orden, una por llamada a CandleAt
	series   []domain.Candle
	attempts []domain.FetchAttempt
	err      error
	calls    int
}

func (m *candleProviderMock) CandleAt(_ context.Context, _, _ string, _ domain.TimeWindow) (domain.Candle, []domain.FetchAttempt, error) {
	if m.err != nil {
		return domain.Candle{}, m.attempts, m.err
	}
	c := m.candles[m.calls]
	m.calls++
	return c, m.attempts, nil
}

func (m *candleProviderMock) Candles(_ context.Context, _, _ string, _ domain.TimeWindow) ([]domain.Candle, []domain.FetchAttempt, error) {
	if m.err != nil {
		return nil, m.attempts, m.err
	}
	return m.series, m.attempts, nil
}

type gameProviderMock struct {
	game       domain.Game
	gameErr    error
	players    []domain.PlayerStat
	statsErr   error
	statsCalls int
}

func (m *gameProviderMock) GameByTeams(_ context.Context, _ time.Time, _, _ string) (domain.Game, []domain.FetchAttempt, error) {
	if m.gameErr != nil {
		return domain.Game{}, okAttempt(), m.gameErr
	}
	return m.game, okAttempt(), nil
}

func (m *gameProviderMock) PlayerStats(_ context.Context, _ int64) ([]domain.PlayerStat, []domain.FetchAttempt, error) {
	m.statsCalls++
	if m.statsErr != nil {
		return nil, okAttempt(), m.statsErr
	}
	return m.players, okAttempt(), nil
}

type journalMock struct {
	saved []domain.ResolutionResult
	err   error
}

func (m *journalMock) SaveResolution(_ context.Context, res domain.ResolutionResult) error {
	m.saved = append(m.saved, res)
	return m.err
}

func (m *journalMock) GetHistory(_ context.Context, _, _ time.Time) ([]domain.ResolutionResult, error) {
	return m.saved, nil
}

func (m *journalMock) Close() error { return nil }

type notifierMock struct {
	notified []domain.ResolutionResult
}

func (m *notifierMock) Notify(_ context.Context, res domain.ResolutionResult) error {
	m.notified = append(m.notified, res)
	return nil
}

// --- Helpers ---

func okAttempt() []domain.FetchAttempt {
	return []domain.FetchAttempt{{Source: "primary", Status: domain.AttemptSuccess}}
}

func degradedAttempts() []domain.FetchAttempt {
	return []domain.FetchAttempt{
		{Source: "proxy", Status: domain.AttemptHTTPError, Detail: "status 500"},
		{Source: "primary", Status: domain.AttemptSuccess},
	}
}

func candleOC(open, close string) domain.Candle {
	return domain.Candle{
		Open:  decimal.RequireFromString(open),
		High:  decimal.RequireFromString(close),
		Low:   decimal.RequireFromString(open),
		Close: decimal.RequireFromString(close),
	}
}

func outcomes() domain.OutcomeMap {
	return domain.OutcomeMap{
		Results: map[domain.RuleResult]string{
			domain.ResultAWins:        "p1",
			domain.ResultBWins:        "p2",
			domain.ResultThresholdMet: "p1",
			domain.ResultEventTrue:    "p1",
			domain.ResultEventFalse:   "p2",
		},
		Unresolved: "p4",
		TooEarly:   "p4",
		Split:      "p3",
	}
}

func priceSpec(kind domain.RuleKind) domain.MarketSpec {
	return domain.MarketSpec{
		Subject:  "BTCUSDT",
		Interval: "1m",
		Window: domain.WindowSpec{
			Date:      "2025-06-15",
			TimeOfDay: "12:00",
			Timezone:  "UTC",
			Duration:  time.Hour,
		},
		RuleKind: kind,
		Outcomes: outcomes(),
	}
}

func sportsSpec() domain.MarketSpec {
	return domain.MarketSpec{
		Subject: "NYY@BOS",
		Window: domain.WindowSpec{
			Date:     "2025-07-04",
			Timezone: "America/New_York",
		},
		RuleKind: domain.RuleEventOccurred,
		Rule: domain.RuleParams{
			HomeTeam:   "NYY",
			AwayTeam:   "BOS",
			WinnerTeam: "NYY",
		},
		Outcomes: outcomes(),
	}
}

// --- Tests ---

func TestResolve_CompareTwoPoints_PriceUp(t *testing.T) {
	candles := &candleProviderMock{
		candles:  []domain.Candle{candleOC("102.00", "102.50"), candleOC("105.80", "106.00")},
		attempts: okAttempt(),
	}
	journal := &journalMock{}
	notifier := &notifierMock{}
	r := resolver.New(candles, &gameProviderMock{}, journal, notifier)

	res := r.Resolve(context.Background(), priceSpec(domain.RuleCompareTwoPoints))

	assert.Equal(t, "p1", res.OutcomeToken)
	assert.Equal(t, domain.ResultAWins, res.RuleResult)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Attempts, 2, "un attempt por cada una de las dos velas")
	assert.NotEmpty(t, res.ID)

	require.Len(t, journal.saved, 1, "cada resolución deja rastro en el journal")
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, res.OutcomeToken, notifier.notified[0].OutcomeToken)
}

func TestResolve_ThresholdMet(t *testing.T) {
	spec := priceSpec(domain.RuleThresholdOverWindow)
	spec.Rule = domain.RuleParams{
		Threshold: decimal.RequireFromString("150"),
		Direction: domain.DirectionHigh,
	}
	candles := &candleProviderMock{
		series:   []domain.Candle{candleOC("148.00", "149.00"), candleOC("149.00", "150.00")},
		attempts: okAttempt(),
	}
	r := resolver.New(candles, &gameProviderMock{}, nil, nil)

	res := r.Resolve(context.Background(), spec)

	assert.Equal(t, "p1", res.OutcomeToken, "la frontera del umbral es inclusiva")
	assert.Equal(t, domain.ResultThresholdMet, res.RuleResult)
}

func TestResolve_AllSourcesExhausted(t *testing.T) {
	attempts := []domain.FetchAttempt{
		{Source: "proxy", Status: domain.AttemptHTTPError},
		{Source: "primary", Status: domain.AttemptNetworkError},
	}
	candles := &candleProviderMock{
		attempts: attempts,
		err:      &domain.ChainExhaustedError{Attempts: attempts},
	}
	r := resolver.New(candles, &gameProviderMock{}, nil, nil)

	res := r.Resolve(context.Background(), priceSpec(domain.RuleCompareTwoPoints))

	assert.Equal(t, "p4", res.OutcomeToken, "sin datos no se adivina un ganador")
	assert.Equal(t, domain.ResultNone, res.RuleResult)
	assert.True(t, res.Degraded)
	assert.Len(t, res.Attempts, 2)
}

func TestResolve_FallbackMarksDegraded(t *testing.T) {
	candles := &candleProviderMock{
		candles:  []domain.Candle{candleOC("100.00", "101.00")},
		attempts: degradedAttempts(),
	}
	r := resolver.New(candles, &gameProviderMock{}, nil, nil)

	res := r.Resolve(context.Background(), priceSpec(domain.RuleOpenCloseDirection))

	assert.Equal(t, "p1", res.OutcomeToken, "el token es correcto aunque respondiera el fallback")
	assert.True(t, res.Degraded)
}

func TestResolve_WindowFailure(t *testing.T) {
	spec := priceSpec(domain.RuleCompareTwoPoints)
	spec.Window.Timezone = "Mars/Olympus"
	notifier := &notifierMock{}
	r := resolver.New(&candleProviderMock{}, &gameProviderMock{}, nil, notifier)

	res := r.Resolve(context.Background(), spec)

	assert.Equal(t, "p4", res.OutcomeToken)
	assert.True(t, res.Degraded)
	require.Len(t, notifier.notified, 1, "siempre se emite un token, incluso sin ventana")
}

func TestResolve_GameFinal_HomeWins(t *testing.T) {
	games := &gameProviderMock{
		game: domain.Game{
			GameID: 7001, Status: domain.StatusFinal,
			HomeTeam: "NYY", AwayTeam: "BOS",
			HomeScore: 5, AwayScore: 3,
		},
	}
	r := resolver.New(&candleProviderMock{}, games, nil, nil)

	res := r.Resolve(context.Background(), sportsSpec())

	assert.Equal(t, "p1", res.OutcomeToken)
	assert.Equal(t, domain.ResultEventTrue, res.RuleResult)
	assert.Equal(t, 0, games.statsCalls, "sin condición de jugador no se piden stats")
}

func TestResolve_GamePostponed(t *testing.T) {
	spec := sportsSpec()
	spec.Rule.PlayerName = "Aaron Judge"
	spec.Rule.StatField = "HomeRuns"
	games := &gameProviderMock{
		game: domain.Game{GameID: 7001, Status: domain.StatusPostponed, HomeTeam: "NYY", AwayTeam: "BOS"},
	}
	r := resolver.New(&candleProviderMock{}, games, nil, nil)

	res := r.Resolve(context.Background(), spec)

	assert.Equal(t, "p4", res.OutcomeToken, "partido no final: demasiado pronto para resolver")
	assert.Equal(t, domain.ResultNone, res.RuleResult)
	assert.Equal(t, 0, games.statsCalls, "un partido no final cortocircuita antes de pedir stats")
}

func TestResolve_GameCanceled(t *testing.T) {
	games := &gameProviderMock{
		game: domain.Game{GameID: 7001, Status: domain.StatusCanceled, HomeTeam: "NYY", AwayTeam: "BOS"},
	}
	r := resolver.New(&candleProviderMock{}, games, nil, nil)

	res := r.Resolve(context.Background(), sportsSpec())

	assert.Equal(t, "p3", res.OutcomeToken, "partido cancelado resuelve 50/50")
}

func TestResolve_PlayerStatMarket(t *testing.T) {
	spec := sportsSpec()
	spec.Rule.PlayerName = "Aaron Judge"
	spec.Rule.StatField = "HomeRuns"
	spec.Rule.Threshold = decimal.NewFromInt(1)
	games := &gameProviderMock{
		game: domain.Game{
			GameID: 7001, Status: domain.StatusFinal,
			HomeTeam: "NYY", AwayTeam: "BOS",
			HomeScore: 5, AwayScore: 3,
		},
		players: []domain.PlayerStat{
			{Name: "Aaron Judge", Team: "NYY", Stats: map[string]float64{"HomeRuns": 2}},
		},
	}
	r := resolver.New(&candleProviderMock{}, games, nil, nil)

	res := r.Resolve(context.Background(), spec)

	assert.Equal(t, "p1", res.OutcomeToken)
	assert.Equal(t, 1, games.statsCalls)
	require.NotNil(t, res.Evidence.Game)
	assert.Len(t, res.Evidence.Players, 1)
}

func TestResolve_GameNotFound(t *testing.T) {
	attempts := []domain.FetchAttempt{{Source: "sportsdata", Status: domain.AttemptHTTPError}}
	games := &gameProviderMock{
		gameErr: &domain.ChainExhaustedError{Attempts: attempts},
	}
	r := resolver.New(&candleProviderMock{}, games, nil, nil)

	res := r.Resolve(context.Background(), sportsSpec())

	assert.Equal(t, "p4", res.OutcomeToken)
	assert.True(t, res.Degraded)
}

func TestResolve_JournalErrorDoesNotChangeToken(t *testing.T) {
	candles := &candleProviderMock{
		candles:  []domain.Candle{candleOC("100.00", "99.00")},
		attempts: okAttempt(),
	}
	journal := &journalMock{err: context.DeadlineExceeded}
	r := resolver.New(candles, &gameProviderMock{}, journal, nil)

	res := r.Resolve(context.Background(), priceSpec(domain.RuleOpenCloseDirection))

	assert.Equal(t, "p2", res.OutcomeToken, "el fallo del journal no altera el token ya decidido")
}
