package ports

import (
	"context"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// Notifier presenta el resultado de la resolución al usuario.
type Notifier interface {
	// Notify emite el resultado. En la implementación de consola, imprime la
	// línea "recommendation: <token>" y opcionalmente la tabla de diagnóstico.
	Notify(ctx context.Context, res domain.ResolutionResult) error
}
