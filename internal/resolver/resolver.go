package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/resolvebot/internal/domain"
	"github.com/alejandrodnm/resolvebot/internal/ports"
)

// Resolver es el orquestador de una resolución: ventana → fetch con fallback →
// extracción → regla → mapeo de outcome. Sin estado mutable compartido entre
// evaluaciones: es seguro correr varios Resolve en paralelo, un MarketSpec por
// worker.
type Resolver struct {
	candles  ports.CandleProvider
	games    ports.GameProvider
	journal  ports.Journal // opcional; nil desactiva el rastro de auditoría
	notifier ports.Notifier
}

// New crea un Resolver con todas las dependencias inyectadas.
func New(candles ports.CandleProvider, games ports.GameProvider, journal ports.Journal, notifier ports.Notifier) *Resolver {
	return &Resolver{
		candles:  candles,
		games:    games,
		journal:  journal,
		notifier: notifier,
	}
}

// Resolve evalúa un MarketSpec y devuelve exactamente un ResolutionResult.
// Nunca falla hacia el caller: la indisponibilidad de datos y las ventanas
// ambiguas se convierten en el token centinela configurado, de modo que el
// comportamiento observable es siempre "emitir un token".
func (r *Resolver) Resolve(ctx context.Context, spec domain.MarketSpec) domain.ResolutionResult {
	start := time.Now()
	res := domain.ResolutionResult{
		ID:         uuid.NewString(),
		Market:     spec,
		ResolvedAt: start.UTC(),
	}

	window, err := spec.Window.Resolve()
	if err != nil {
		slog.Warn("window resolution failed", "subject", spec.Subject, "err", err)
		res.OutcomeToken = spec.Outcomes.Unresolved
		res.Degraded = true
		return r.finish(ctx, res, start)
	}
	res.Window = window

	if spec.RuleKind.IsSports() {
		r.resolveSports(ctx, spec, &res)
	} else {
		r.resolvePrice(ctx, spec, window, &res)
	}

	return r.finish(ctx, res, start)
}

// resolvePrice recolecta la evidencia de velas según el kind y evalúa.
func (r *Resolver) resolvePrice(ctx context.Context, spec domain.MarketSpec, window domain.TimeWindow, res *domain.ResolutionResult) {
	interval := spec.CandleInterval()
	ev := domain.Evidence{}

	switch spec.RuleKind {
	case domain.RuleCompareTwoPoints:
		// Dos ventanas puntuales: la vela que abre la ventana y la vela que
		// empieza donde la ventana termina.
		first, ok := r.fetchCandle(ctx, spec, pointWindow(window.StartMS, interval), res)
		if !ok {
			return
		}
		second, ok := r.fetchCandle(ctx, spec, pointWindow(window.EndMS, interval), res)
		if !ok {
			return
		}
		ev.First, ev.Second = &first, &second

	case domain.RuleOpenCloseDirection:
		candle, ok := r.fetchCandle(ctx, spec, pointWindow(window.StartMS, interval), res)
		if !ok {
			return
		}
		ev.First = &candle

	case domain.RuleThresholdOverWindow:
		series, attempts, err := r.candles.Candles(ctx, spec.Subject, spec.Interval, window)
		res.Attempts = append(res.Attempts, attempts...)
		res.Degraded = res.Degraded || domain.FallbackUsed(attempts)
		if err != nil {
			r.markExhausted(res, err)
			return
		}
		ev.Series = series

	default:
		slog.Error("unknown rule kind", "kind", spec.RuleKind, "subject", spec.Subject)
		res.OutcomeToken = spec.Outcomes.Unresolved
		res.Degraded = true
		return
	}

	res.Evidence = ev
	r.evaluate(spec, ev, domain.StatusNone, res)
}

// resolveSports recolecta box score (y stat line si aplica) y evalúa. Los
// estados no finales cortocircuitan al token correspondiente sin evaluar la
// regla ni pedir stats.
func (r *Resolver) resolveSports(ctx context.Context, spec domain.MarketSpec, res *domain.ResolutionResult) {
	date, err := time.Parse("2006-01-02", spec.Window.Date)
	if err != nil {
		slog.Warn("invalid market date", "subject", spec.Subject, "err", err)
		res.OutcomeToken = spec.Outcomes.Unresolved
		res.Degraded = true
		return
	}

	game, attempts, err := r.games.GameByTeams(ctx, date, spec.Rule.HomeTeam, spec.Rule.AwayTeam)
	res.Attempts = append(res.Attempts, attempts...)
	res.Degraded = res.Degraded || domain.FallbackUsed(attempts)
	if err != nil {
		r.markExhausted(res, err)
		return
	}

	res.Evidence.Game = &game
	if !game.Status.IsFinal() {
		// Scheduled/InProgress/Delayed/Suspended → too early; Postponed exige
		// re-chequeo posterior; Canceled → 50/50. El mapper decide.
		res.RuleResult = domain.ResultNone
		res.OutcomeToken = spec.Outcomes.Resolve(domain.ResultNone, game.Status, false)
		return
	}

	if spec.Rule.PlayerName != "" {
		players, attempts, err := r.games.PlayerStats(ctx, game.GameID)
		res.Attempts = append(res.Attempts, attempts...)
		res.Degraded = res.Degraded || domain.FallbackUsed(attempts)
		if err != nil {
			r.markExhausted(res, err)
			return
		}
		res.Evidence.Players = players
	}

	r.evaluate(spec, res.Evidence, game.Status, res)
}

// evaluate corre la regla pura y traduce el resultado a token.
func (r *Resolver) evaluate(spec domain.MarketSpec, ev domain.Evidence, status domain.GameStatus, res *domain.ResolutionResult) {
	result, err := domain.EvaluateRule(spec.RuleKind, spec.Rule, ev)
	if err != nil {
		slog.Warn("rule evaluation failed", "subject", spec.Subject, "kind", spec.RuleKind, "err", err)
		res.OutcomeToken = spec.Outcomes.Unresolved
		res.Degraded = true
		return
	}
	res.RuleResult = result
	res.OutcomeToken = spec.Outcomes.Resolve(result, status, false)
}

// fetchCandle pide una vela puntual acumulando attempts y degradación.
func (r *Resolver) fetchCandle(ctx context.Context, spec domain.MarketSpec, w domain.TimeWindow, res *domain.ResolutionResult) (domain.Candle, bool) {
	candle, attempts, err := r.candles.CandleAt(ctx, spec.Subject, spec.Interval, w)
	res.Attempts = append(res.Attempts, attempts...)
	res.Degraded = res.Degraded || domain.FallbackUsed(attempts)
	if err != nil {
		r.markExhausted(res, err)
		return domain.Candle{}, false
	}
	return candle, true
}

// markExhausted convierte el agotamiento de la cadena en el token "no se pudo
// resolver". Nunca un ganador inferido.
func (r *Resolver) markExhausted(res *domain.ResolutionResult, err error) {
	slog.Warn("source chain exhausted",
		"subject", res.Market.Subject,
		"attempts", len(res.Attempts),
		"err", err,
	)
	res.RuleResult = domain.ResultNone
	res.OutcomeToken = res.Market.Outcomes.Resolve(domain.ResultNone, domain.StatusNone, true)
	res.Degraded = true
}

// finish persiste y notifica el resultado. Fallos de journal o notifier se
// loguean pero no alteran el token ya decidido.
func (r *Resolver) finish(ctx context.Context, res domain.ResolutionResult, start time.Time) domain.ResolutionResult {
	if r.journal != nil {
		if err := r.journal.SaveResolution(ctx, res); err != nil {
			slog.Warn("journal error", "err", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, res); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("resolution complete",
		"subject", res.Market.Subject,
		"kind", res.Market.RuleKind,
		"token", res.OutcomeToken,
		"rule_result", res.RuleResult,
		"degraded", res.Degraded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res
}

// pointWindow es la ventana de exactamente un intervalo de vela que empieza en
// el instante dado.
func pointWindow(startMS int64, interval time.Duration) domain.TimeWindow {
	return domain.TimeWindow{StartMS: startMS, EndMS: startMS + interval.Milliseconds()}
}
