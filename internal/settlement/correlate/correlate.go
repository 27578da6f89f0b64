package correlate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

var (
	// ErrEventNotFound: nenhum resultado do provedor com o eventId da aposta.
	ErrEventNotFound = errors.New("event not found in provider results")

	// ErrEventIncomplete: evento encontrado mas ainda não finalizado.
	ErrEventIncomplete = errors.New("event not completed yet")
)

// TeamMismatchError: evento completo mas os nomes de time do provedor não
// batem com os gravados na aposta. Irrecuperável neste ciclo — nunca se
// adivinha um lado. Carrega os dois conjuntos pra log do operador.
type TeamMismatchError struct {
	EventID  string
	Expected []string // nomes gravados na colocação
	Received []string // nomes reportados pelo provedor
}

func (e *TeamMismatchError) Error() string {
	return fmt.Sprintf("team name mismatch on event %s: expected %v, provider sent %v",
		e.EventID, e.Expected, e.Received)
}

// Scores é o placar final já atribuído aos lados home/away da aposta.
type Scores struct {
	Home int
	Away int
}

// Match correlaciona uma aposta com os resultados do provedor.
// O lookup é só por eventId; a extração de placar casa strings de nome de
// time contra HomeTeam/AwayTeam gravados — nunca por posição no array,
// porque a ordem do provedor não é indicador confiável de mando de campo.
func Match(w domain.Wager, results []domain.GameResult) (Scores, error) {
	var game *domain.GameResult
	for i := range results {
		if results[i].EventID == w.EventID {
			game = &results[i]
			break
		}
	}
	if game == nil {
		return Scores{}, ErrEventNotFound
	}

	if !game.Completed {
		return Scores{}, ErrEventIncomplete
	}

	homeScore, homeOK := scoreFor(game.Scores, w.HomeTeam)
	awayScore, awayOK := scoreFor(game.Scores, w.AwayTeam)
	if !homeOK || !awayOK {
		received := make([]string, 0, len(game.Scores))
		for _, s := range game.Scores {
			received = append(received, s.Name)
		}
		return Scores{}, &TeamMismatchError{
			EventID:  w.EventID,
			Expected: []string{w.HomeTeam, w.AwayTeam},
			Received: received,
		}
	}

	return Scores{Home: homeScore, Away: awayScore}, nil
}

// scoreFor procura o placar do time pelo nome (case-insensitive, sem
// espaços nas pontas).
func scoreFor(scores []domain.TeamScore, team string) (int, bool) {
	want := strings.TrimSpace(team)
	for _, s := range scores {
		if strings.EqualFold(strings.TrimSpace(s.Name), want) {
			return s.Score, true
		}
	}
	return 0, false
}
