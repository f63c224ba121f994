package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// SportsChain implementa ports.GameProvider sobre una cadena de endpoints del
// proveedor deportivo. El base URL de cada Client apunta a la raíz del API
// (ej "https://api.sportsdata.io/v3/mlb").
type SportsChain struct {
	clients []*Client
	race    bool
}

// NewSportsChain crea la cadena de endpoints deportivos.
func NewSportsChain(race bool, clients ...*Client) *SportsChain {
	return &SportsChain{clients: clients, race: race}
}

// gameDTO es el objeto de partido del proveedor. Los campos de score varían
// por deporte (Runs en MLB, Score en el resto); ambos se aceptan.
type gameDTO struct {
	GameID        int64  `json:"GameID"`
	Status        string `json:"Status"`
	HomeTeam      string `json:"HomeTeam"`
	AwayTeam      string `json:"AwayTeam"`
	HomeTeamRuns  *int   `json:"HomeTeamRuns"`
	AwayTeamRuns  *int   `json:"AwayTeamRuns"`
	HomeTeamScore *int   `json:"HomeTeamScore"`
	AwayTeamScore *int   `json:"AwayTeamScore"`
}

// GameByTeams busca el único partido de la fecha cuyo par de equipos (sin
// orden) coincide con los dados.
func (s *SportsChain) GameByTeams(ctx context.Context, date time.Time, homeTeam, awayTeam string) (domain.Game, []domain.FetchAttempt, error) {
	path := fmt.Sprintf("/scores/json/GamesByDate/%s", date.Format("2006-Jan-02"))

	fetch := func(ctx context.Context, c *Client) (domain.Game, error) {
		var raw []gameDTO
		if err := c.getJSON(ctx, path, nil, &raw); err != nil {
			return domain.Game{}, err
		}
		return matchGame(raw, homeTeam, awayTeam)
	}
	if s.race {
		return fetchRacing(ctx, s.clients, fetch)
	}
	return fetchWithFallback(ctx, s.clients, fetch)
}

// PlayerStats devuelve las líneas de stats por jugador del partido. El payload
// del proveedor es una fila por jugador con campos numéricos variables según
// el deporte, así que se decodifica genéricamente.
func (s *SportsChain) PlayerStats(ctx context.Context, gameID int64) ([]domain.PlayerStat, []domain.FetchAttempt, error) {
	path := fmt.Sprintf("/stats/json/PlayerGameStatsByGame/%d", gameID)

	fetch := func(ctx context.Context, c *Client) ([]domain.PlayerStat, error) {
		var raw []map[string]any
		if err := c.getJSON(ctx, path, nil, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, domain.ErrEmptyPayload
		}
		return extractPlayerStats(raw), nil
	}
	if s.race {
		return fetchRacing(ctx, s.clients, fetch)
	}
	return fetchWithFallback(ctx, s.clients, fetch)
}

// matchGame selecciona el único partido cuyo par {home, away} coincide sin
// orden con los equipos pedidos. Cero o varios matches son ambigüedad del
// proveedor y fallan con GameNotFoundError en vez de adivinar.
func matchGame(games []gameDTO, teamA, teamB string) (domain.Game, error) {
	var found []gameDTO
	for _, g := range games {
		if samePair(g.HomeTeam, g.AwayTeam, teamA, teamB) {
			found = append(found, g)
		}
	}
	if len(found) != 1 {
		return domain.Game{}, &domain.GameNotFoundError{
			HomeTeam: teamA,
			AwayTeam: teamB,
			Matches:  len(found),
		}
	}
	return mapGame(found[0]), nil
}

// samePair compara pares de equipos sin orden, case-insensitive.
func samePair(home, away, a, b string) bool {
	return (strings.EqualFold(home, a) && strings.EqualFold(away, b)) ||
		(strings.EqualFold(home, b) && strings.EqualFold(away, a))
}

// mapGame convierte el DTO del proveedor a domain.Game, prefiriendo los campos
// Runs (MLB) sobre Score cuando ambos existen.
func mapGame(g gameDTO) domain.Game {
	return domain.Game{
		GameID:    g.GameID,
		Status:    domain.ParseGameStatus(g.Status),
		HomeTeam:  g.HomeTeam,
		AwayTeam:  g.AwayTeam,
		HomeScore: pickScore(g.HomeTeamRuns, g.HomeTeamScore),
		AwayScore: pickScore(g.AwayTeamRuns, g.AwayTeamScore),
	}
}

func pickScore(runs, score *int) int {
	if runs != nil {
		return *runs
	}
	if score != nil {
		return *score
	}
	return 0
}

// extractPlayerStats separa los campos de identidad (Name, Team) de los
// numéricos, que se conservan tal cual en el map de stats.
func extractPlayerStats(raw []map[string]any) []domain.PlayerStat {
	stats := make([]domain.PlayerStat, 0, len(raw))
	for _, row := range raw {
		p := domain.PlayerStat{Stats: make(map[string]float64)}
		for k, v := range row {
			switch t := v.(type) {
			case string:
				switch strings.ToLower(k) {
				case "name":
					p.Name = t
				case "team":
					p.Team = t
				}
			case float64:
				p.Stats[k] = t
			}
		}
		if p.Name != "" {
			stats = append(stats, p)
		}
	}
	return stats
}
