package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// Offsets de columna del array de klines del proveedor. Solo este archivo los
// conoce: a partir del extractor todo es domain.Candle.
const (
	colOpenTime  = 0
	colOpen      = 1
	colHigh      = 2
	colLow       = 3
	colClose     = 4
	colVolume    = 5
	colCloseTime = 6
	klineColumns = 7
)

const maxKlinesLimit = 1000

// KlinesChain implementa ports.CandleProvider sobre una cadena ordenada de
// endpoints de klines intercambiables (proxy primero, primario después).
// El base URL de cada Client es el endpoint completo de klines; proxy y
// primario aceptan los mismos query params.
type KlinesChain struct {
	clients []*Client
	race    bool
}

// NewKlinesChain crea la cadena. Con race=true los endpoints se consultan en
// paralelo y gana el primer éxito; por defecto el orden es estricto.
func NewKlinesChain(race bool, clients ...*Client) *KlinesChain {
	return &KlinesChain{clients: clients, race: race}
}

// CandleAt devuelve la única vela cuyo openTime cae dentro de la ventana.
func (k *KlinesChain) CandleAt(ctx context.Context, symbol, interval string, w domain.TimeWindow) (domain.Candle, []domain.FetchAttempt, error) {
	candles, attempts, err := k.Candles(ctx, symbol, interval, w)
	if err != nil {
		return domain.Candle{}, attempts, err
	}
	return candles[0], attempts, nil
}

// Candles devuelve todas las velas dentro de la ventana, en orden cronológico.
func (k *KlinesChain) Candles(ctx context.Context, symbol, interval string, w domain.TimeWindow) ([]domain.Candle, []domain.FetchAttempt, error) {
	fetch := func(ctx context.Context, c *Client) ([]domain.Candle, error) {
		return fetchCandles(ctx, c, symbol, interval, w)
	}
	if k.race {
		return fetchRacing(ctx, k.clients, fetch)
	}
	return fetchWithFallback(ctx, k.clients, fetch)
}

// fetchCandles hace el GET a un endpoint y extrae las velas de la ventana.
// La extracción ocurre dentro del intento: un payload vacío o sin velas en la
// ventana cuenta como fallo del endpoint y hace avanzar la cadena.
func fetchCandles(ctx context.Context, c *Client, symbol, interval string, w domain.TimeWindow) ([]domain.Candle, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("startTime", strconv.FormatInt(w.StartMS, 10))
	query.Set("endTime", strconv.FormatInt(w.EndMS, 10))
	query.Set("limit", strconv.Itoa(klinesLimit(interval, w)))

	var raw [][]any
	if err := c.getJSON(ctx, "", query, &raw); err != nil {
		return nil, err
	}
	return extractCandles(raw, w)
}

// extractCandles normaliza el array posicional del proveedor y selecciona las
// velas cuyo openTime cae dentro de la ventana. Un array vacío es una ausencia
// tipada (ErrEmptyPayload); si ninguna vela cae dentro, ErrNoCandleInWindow —
// nunca se sustituye una vela vecina.
func extractCandles(raw [][]any, w domain.TimeWindow) ([]domain.Candle, error) {
	if len(raw) == 0 {
		return nil, domain.ErrEmptyPayload
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i, row := range raw {
		candle, err := extractCandle(row)
		if err != nil {
			return nil, fmt.Errorf("sources.extractCandles: row %d: %w", i, err)
		}
		if w.Contains(candle.OpenTime) {
			candles = append(candles, candle)
		}
	}
	if len(candles) == 0 {
		return nil, domain.ErrNoCandleInWindow
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })
	return candles, nil
}

// extractCandle lee una fila de klines por offsets de columna fijos.
func extractCandle(row []any) (domain.Candle, error) {
	if len(row) < klineColumns {
		return domain.Candle{}, fmt.Errorf("kline row has %d columns, want >= %d", len(row), klineColumns)
	}

	openTime, err := cellInt64(row[colOpenTime])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("open time: %w", err)
	}
	closeTime, err := cellInt64(row[colCloseTime])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("close time: %w", err)
	}

	candle := domain.Candle{OpenTime: openTime, CloseTime: closeTime}
	for _, f := range []struct {
		col int
		dst *decimal.Decimal
	}{
		{colOpen, &candle.Open},
		{colHigh, &candle.High},
		{colLow, &candle.Low},
		{colClose, &candle.Close},
		{colVolume, &candle.Volume},
	} {
		v, err := cellDecimal(row[f.col])
		if err != nil {
			return domain.Candle{}, fmt.Errorf("column %d: %w", f.col, err)
		}
		*f.dst = v
	}
	return candle, nil
}

// cellDecimal convierte una celda del array (string o número JSON) a decimal,
// preservando la precisión de los strings del proveedor.
func cellDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		return decimal.NewFromString(t)
	case float64:
		return decimal.NewFromFloat(t), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected cell type %T", v)
}

// cellInt64 convierte una celda de timestamp (número o string) a epoch ms.
func cellInt64(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("unexpected timestamp type %T", v)
}

// klinesLimit calcula cuántas velas caben en la ventana, acotado al máximo del
// proveedor.
func klinesLimit(interval string, w domain.TimeWindow) int {
	d, err := domain.ParseInterval(interval)
	if err != nil {
		return 1
	}
	n := int((w.EndMS - w.StartMS) / d.Milliseconds())
	if n < 1 {
		n = 1
	}
	if n > maxKlinesLimit {
		n = maxKlinesLimit
	}
	return n
}
