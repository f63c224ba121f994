package ports

import (
	"context"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// CandleProvider obtiene velas del proveedor de precios, resolviendo el
// fallback entre endpoints internamente. Los FetchAttempt devueltos cubren
// todos los endpoints probados, incluido el exitoso, para diagnóstico.
type CandleProvider interface {
	// CandleAt devuelve la única vela cuyo inicio de intervalo cae dentro de
	// la ventana. Falla con ErrNoCandleInWindow si no hay ninguna; nunca
	// sustituye una vela vecina.
	CandleAt(ctx context.Context, symbol, interval string, w domain.TimeWindow) (domain.Candle, []domain.FetchAttempt, error)

	// Candles devuelve todas las velas cuyo inicio de intervalo cae dentro de
	// la ventana, en orden cronológico.
	Candles(ctx context.Context, symbol, interval string, w domain.TimeWindow) ([]domain.Candle, []domain.FetchAttempt, error)
}
