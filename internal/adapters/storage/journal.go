package storage

// journal.go — rastro de auditoría de resoluciones.
//
// Estrategia:
//   - `resolutions`: una fila por corrida, con el token emitido y la ventana.
//   - `attempts`: una fila por endpoint probado, para reconstruir el
//     diagnóstico de la cadena de fallback a posteriori.
//   - Prune automático al arrancar: resoluciones > 90 días.
//
// El journal es solo observabilidad: el motor nunca lo lee para decidir un
// outcome, así que cada resolución sigue siendo una query sin estado.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/resolvebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por resolución
CREATE TABLE IF NOT EXISTS resolutions (
    id            TEXT PRIMARY KEY,
    resolved_at   DATETIME NOT NULL,
    subject       TEXT     NOT NULL,
    rule_kind     TEXT     NOT NULL,
    outcome_token TEXT     NOT NULL,
    rule_result   TEXT,
    degraded      INTEGER  NOT NULL DEFAULT 0,
    window_start  INTEGER,
    window_end    INTEGER
);

-- Una fila por endpoint probado durante la resolución
CREATE TABLE IF NOT EXISTS attempts (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    resolution_id TEXT NOT NULL REFERENCES resolutions(id),
    source        TEXT NOT NULL,
    status        TEXT NOT NULL,
    latency_ms    INTEGER NOT NULL DEFAULT 0,
    detail        TEXT
);

CREATE INDEX IF NOT EXISTS idx_res_at       ON resolutions(resolved_at DESC);
CREATE INDEX IF NOT EXISTS idx_res_subject  ON resolutions(subject);
CREATE INDEX IF NOT EXISTS idx_att_res      ON attempts(resolution_id);
`

// resoluciones más viejas que esto se eliminan al arrancar.
const retention = 90 * 24 * time.Hour

// SQLiteJournal implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia datos antiguos.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	j.pruneOld(context.Background())
	return j, nil
}

// SaveResolution persiste el resultado y sus fetch attempts en una transacción.
func (j *SQLiteJournal) SaveResolution(ctx context.Context, res domain.ResolutionResult) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveResolution: begin tx: %w", err)
	}
	defer tx.Rollback()

	degraded := 0
	if res.Degraded {
		degraded = 1
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO resolutions
			(id, resolved_at, subject, rule_kind, outcome_token, rule_result,
			 degraded, window_start, window_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		res.ResolvedAt.UTC().Format(time.RFC3339),
		res.Market.Subject,
		string(res.Market.RuleKind),
		res.OutcomeToken,
		string(res.RuleResult),
		degraded,
		res.Window.StartMS,
		res.Window.EndMS,
	); err != nil {
		return fmt.Errorf("storage.SaveResolution: insert resolution: %w", err)
	}

	for _, a := range res.Attempts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attempts (resolution_id, source, status, latency_ms, detail)
			VALUES (?, ?, ?, ?, ?)`,
			res.ID, a.Source, string(a.Status), a.LatencyMS, a.Detail,
		); err != nil {
			return fmt.Errorf("storage.SaveResolution: insert attempt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveResolution: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las resoluciones registradas en el rango dado, más
// recientes primero. Solo los campos resumen; los attempts no se rehidratan.
func (j *SQLiteJournal) GetHistory(ctx context.Context, from, to time.Time) ([]domain.ResolutionResult, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, resolved_at, subject, rule_kind, outcome_token, rule_result,
		       degraded, window_start, window_end
		FROM resolutions
		WHERE resolved_at BETWEEN ? AND ?
		ORDER BY resolved_at DESC
	`, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var results []domain.ResolutionResult
	for rows.Next() {
		var res domain.ResolutionResult
		var resolvedAt, kind, ruleResult string
		var degraded int

		if err := rows.Scan(
			&res.ID,
			&resolvedAt,
			&res.Market.Subject,
			&kind,
			&res.OutcomeToken,
			&ruleResult,
			&degraded,
			&res.Window.StartMS,
			&res.Window.EndMS,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		res.ResolvedAt, _ = time.Parse(time.RFC3339, resolvedAt)
		res.Market.RuleKind = domain.RuleKind(kind)
		res.RuleResult = domain.RuleResult(ruleResult)
		res.Degraded = degraded == 1
		results = append(results, res)
	}

	return results, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// pruneOld elimina resoluciones y attempts antiguos para mantener la DB ligera.
func (j *SQLiteJournal) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)
	j.db.ExecContext(ctx, `DELETE FROM attempts WHERE resolution_id IN
		(SELECT id FROM resolutions WHERE resolved_at < ?)`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM resolutions WHERE resolved_at < ?`, cutoff)
}
