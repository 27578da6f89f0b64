package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// ErrInvalidWagerData indica aposta malformada (linha ou seleção ausente).
// Problema de integridade de dados: a aposta fica PENDING, nunca se assume
// uma linha default.
var ErrInvalidWagerData = errors.New("invalid wager data")

// ErrNotDirectlyEvaluable indica tipo de aposta que não é avaliado por
// placar (parlay e prop seguem caminhos próprios no orquestrador).
var ErrNotDirectlyEvaluable = errors.New("bet type not directly evaluable")

// PropResolver delega apostas de prop (estatística de jogador) a um
// colaborador específico do esporte. Retorno nil sem erro significa
// "resultado ainda indisponível": a aposta segue PENDING.
type PropResolver interface {
	ResolveProp(ctx context.Context, w domain.Wager) (*domain.Outcome, error)
}

// Evaluate despacha pro avaliador do tipo da aposta. Funções totais:
// para aposta bem formada nenhum par de placares inteiros produz erro.
func Evaluate(w domain.Wager, homeScore, awayScore int) (domain.Outcome, error) {
	switch w.BetType {
	case domain.BetMoneyline:
		return Moneyline(w, homeScore, awayScore)
	case domain.BetSpread:
		return Spread(w, homeScore, awayScore)
	case domain.BetTotal:
		return Total(w, homeScore, awayScore)
	case domain.BetParlay, domain.BetProp:
		return domain.Outcome{}, fmt.Errorf("%w: %s", ErrNotDirectlyEvaluable, w.BetType)
	default:
		return domain.Outcome{}, fmt.Errorf("%w: unknown bet type %q", ErrInvalidWagerData, w.BetType)
	}
}

// Moneyline avalia vitória direta. Empate no placar é push (estorno).
func Moneyline(w domain.Wager, homeScore, awayScore int) (domain.Outcome, error) {
	if w.TeamSelection != domain.SideHome && w.TeamSelection != domain.SideAway {
		return domain.Outcome{}, fmt.Errorf("%w: moneyline without team selection", ErrInvalidWagerData)
	}

	if homeScore == awayScore {
		return push(w, fmt.Sprintf("tie %d-%d", homeScore, awayScore)), nil
	}

	actualWinner := domain.SideHome
	if awayScore > homeScore {
		actualWinner = domain.SideAway
	}

	if actualWinner == w.TeamSelection {
		return win(w, fmt.Sprintf("%s won %d-%d", actualWinner, homeScore, awayScore)), nil
	}
	return lose(fmt.Sprintf("%s won %d-%d", actualWinner, homeScore, awayScore)), nil
}

// Spread avalia contra a linha de handicap. SpreadValue já vem com sinal
// (ex: -7.5 = precisa vencer por mais de 7.5).
func Spread(w domain.Wager, homeScore, awayScore int) (domain.Outcome, error) {
	if w.TeamSelection != domain.SideHome && w.TeamSelection != domain.SideAway {
		return domain.Outcome{}, fmt.Errorf("%w: spread without team selection", ErrInvalidWagerData)
	}
	if w.SpreadValue == nil {
		return domain.Outcome{}, fmt.Errorf("%w: spread without line", ErrInvalidWagerData)
	}

	selected, opposing := float64(homeScore), float64(awayScore)
	if w.TeamSelection == domain.SideAway {
		selected, opposing = float64(awayScore), float64(homeScore)
	}

	adjusted := selected + *w.SpreadValue
	switch {
	case adjusted > opposing:
		return win(w, fmt.Sprintf("%s covered %+.1f (%d-%d)", w.TeamSelection, *w.SpreadValue, homeScore, awayScore)), nil
	case adjusted == opposing:
		return push(w, fmt.Sprintf("spread push at %+.1f (%d-%d)", *w.SpreadValue, homeScore, awayScore)), nil
	default:
		return lose(fmt.Sprintf("%s did not cover %+.1f (%d-%d)", w.TeamSelection, *w.SpreadValue, homeScore, awayScore)), nil
	}
}

// Total avalia over/under contra a linha de pontos somados.
func Total(w domain.Wager, homeScore, awayScore int) (domain.Outcome, error) {
	if w.OverUnderSelection != domain.SelectionOver && w.OverUnderSelection != domain.SelectionUnder {
		return domain.Outcome{}, fmt.Errorf("%w: total without over/under selection", ErrInvalidWagerData)
	}
	if w.TotalPoints == nil {
		return domain.Outcome{}, fmt.Errorf("%w: total without line", ErrInvalidWagerData)
	}

	sum := float64(homeScore + awayScore)
	line := *w.TotalPoints

	if sum == line {
		return push(w, fmt.Sprintf("total push: %d+%d == %.1f", homeScore, awayScore, line)), nil
	}

	overWon := sum > line
	selectedOver := w.OverUnderSelection == domain.SelectionOver
	if overWon == selectedOver {
		return win(w, fmt.Sprintf("%s hit: total %.0f vs line %.1f", w.OverUnderSelection, sum, line)), nil
	}
	return lose(fmt.Sprintf("%s missed: total %.0f vs line %.1f", w.OverUnderSelection, sum, line)), nil
}

func win(w domain.Wager, reason string) domain.Outcome {
	return domain.Outcome{
		Status:      domain.StatusWon,
		ResultCents: w.StakeCents + w.PotentialWinCents,
		Reason:      reason,
	}
}

func push(w domain.Wager, reason string) domain.Outcome {
	return domain.Outcome{
		Status:      domain.StatusPushed,
		ResultCents: w.StakeCents, // estorno da stake
		Reason:      reason,
	}
}

func lose(reason string) domain.Outcome {
	return domain.Outcome{Status: domain.StatusLost, ResultCents: 0, Reason: reason}
}
