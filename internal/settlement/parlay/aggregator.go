package parlay

import (
	"fmt"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// Evaluate deriva o desfecho do parlay pai a partir dos status JÁ GRAVADOS
// das pernas — nunca re-avaliando placares. Ordem das regras (a primeira
// que casar vence):
//
//  1. sem pernas vinculadas        -> PENDING (atenção do operador)
//  2. qualquer perna LOST          -> LOST (curto-circuito; perna PENDING não segura)
//  3. qualquer perna PENDING       -> PENDING
//  4. todas as pernas PUSHED       -> PUSHED (estorno)
//  5. restantes todas WON (+voids) -> WON (push = perna anulada)
//  6. qualquer outra combinação    -> PENDING (violação de invariante; o caller loga)
func Evaluate(parent domain.Wager, legs []domain.Wager) domain.Outcome {
	if len(legs) == 0 {
		return domain.Outcome{
			Status: domain.StatusPending,
			Reason: "parlay has no linked legs; flagged for operator review",
		}
	}

	var lost, pending, pushed, won, other int
	for _, leg := range legs {
		switch leg.Status {
		case domain.StatusLost:
			lost++
		case domain.StatusPending:
			pending++
		case domain.StatusPushed:
			pushed++
		case domain.StatusWon:
			won++
		default:
			other++
		}
	}

	if lost > 0 {
		return domain.Outcome{
			Status: domain.StatusLost,
			Reason: fmt.Sprintf("%d of %d legs lost", lost, len(legs)),
		}
	}

	if pending > 0 {
		return domain.Outcome{
			Status: domain.StatusPending,
			Reason: fmt.Sprintf("%d of %d legs still pending", pending, len(legs)),
		}
	}

	if pushed == len(legs) {
		return domain.Outcome{
			Status:      domain.StatusPushed,
			ResultCents: parent.StakeCents,
			Reason:      "all legs pushed; stake refunded",
		}
	}

	if won > 0 && won+pushed == len(legs) {
		return domain.Outcome{
			Status:      domain.StatusWon,
			ResultCents: parent.StakeCents + parent.PotentialWinCents,
			Reason:      fmt.Sprintf("%d legs won, %d voided by push", won, pushed),
		}
	}

	// Combinação fora das regras (ex: perna CANCELLED). Não adivinhar.
	return domain.Outcome{
		Status: domain.StatusPending,
		Reason: fmt.Sprintf("inconsistent leg statuses (won=%d pushed=%d other=%d); left pending", won, pushed, other),
	}
}
