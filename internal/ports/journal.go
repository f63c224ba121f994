package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// Journal persiste el rastro de auditoría de cada resolución. Es solo
// diagnóstico: el motor nunca lee el journal para decidir un outcome.
type Journal interface {
	// SaveResolution persiste el resultado y sus fetch attempts.
	SaveResolution(ctx context.Context, res domain.ResolutionResult) error

	// GetHistory devuelve las resoluciones registradas en el rango dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.ResolutionResult, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
