package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// GameProvider obtiene box scores y stat lines del proveedor deportivo.
type GameProvider interface {
	// GameByTeams busca en los partidos de la fecha el único cuyo par
	// {home, away} (sin orden) coincide con los equipos dados. Cero o varios
	// matches fallan con GameNotFoundError.
	GameByTeams(ctx context.Context, date time.Time, homeTeam, awayTeam string) (domain.Game, []domain.FetchAttempt, error)

	// PlayerStats devuelve las líneas de stats por jugador del partido.
	PlayerStats(ctx context.Context, gameID int64) ([]domain.PlayerStat, []domain.FetchAttempt, error)
}
