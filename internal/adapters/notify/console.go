package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// Console implementa ports.Notifier. El contrato de salida del proceso es
// exactamente una línea en stdout: "recommendation: <token>". El diagnóstico
// opcional (tabla de fetch attempts) va a stderr para no romperlo.
type Console struct {
	out   io.Writer // recommendation
	diag  io.Writer // tabla de diagnóstico
	table bool
}

// NewConsole crea un notificador que escribe a stdout/stderr.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, diag: os.Stderr, table: table}
}

// NewConsoleWriter crea un notificador con writers inyectados, para tests.
func NewConsoleWriter(out, diag io.Writer, table bool) *Console {
	return &Console{out: out, diag: diag, table: table}
}

// Notify imprime el resultado en el modo configurado.
func (c *Console) Notify(_ context.Context, res domain.ResolutionResult) error {
	if c.table {
		c.printDiagnostics(res)
	}

	_, err := fmt.Fprintf(c.out, "recommendation: %s\n", res.OutcomeToken)
	return err
}

// printDiagnostics imprime el detalle de la corrida y la tabla de endpoints
// probados por la cadena de fallback.
func (c *Console) printDiagnostics(res domain.ResolutionResult) {
	fmt.Fprintf(c.diag, "\n%s %s → %s (rule=%s degraded=%v attempts=%d)\n",
		res.Market.Subject, res.Market.RuleKind, res.OutcomeToken,
		res.RuleResult, res.Degraded, len(res.Attempts))

	if len(res.Attempts) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.diag)
	table.Header("#", "Source", "Status", "Latency", "Detail")

	for i, a := range res.Attempts {
		table.Append(
			fmt.Sprintf("%d", i+1),
			a.Source,
			string(a.Status),
			fmt.Sprintf("%dms", a.LatencyMS),
			truncate(a.Detail, 60),
		)
	}

	table.Render()
}

// truncate recorta s a maxLen caracteres con elipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
