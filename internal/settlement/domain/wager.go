package domain

import "time"

// Tipos de aposta suportados pelo motor de liquidação.
type BetType string

const (
	BetMoneyline BetType = "MONEYLINE"
	BetSpread    BetType = "SPREAD"
	BetTotal     BetType = "TOTAL"
	BetParlay    BetType = "PARLAY"
	BetProp      BetType = "PROP"
)

// Status do ciclo de vida de uma aposta. PENDING é o único estado
// não-terminal; a transição para fora dele acontece no máximo uma vez.
type BetStatus string

const (
	StatusPending   BetStatus = "PENDING"
	StatusWon       BetStatus = "WON"
	StatusLost      BetStatus = "LOST"
	StatusPushed    BetStatus = "PUSHED"
	StatusCancelled BetStatus = "CANCELLED"
)

// Terminal indica se o status não admite mais transições.
func (s BetStatus) Terminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusPushed, StatusCancelled:
		return true
	}
	return false
}

// Lado selecionado em apostas moneyline/spread. Gravado na colocação;
// nunca re-derivado de texto livre.
type TeamSide string

const (
	SideHome TeamSide = "HOME"
	SideAway TeamSide = "AWAY"
)

// Opposite retorna o lado adversário.
func (t TeamSide) Opposite() TeamSide {
	if t == SideHome {
		return SideAway
	}
	return SideHome
}

// Seleção over/under em apostas de total.
type OverUnder string

const (
	SelectionOver  OverUnder = "OVER"
	SelectionUnder OverUnder = "UNDER"
)

// Wager é a unidade de liquidação. Pernas de parlay carregam o registro
// completo e apontam pro pai via ParentBetID; só o pai é pago.
type Wager struct {
	ID          string
	ParentBetID string // vazio quando não é perna de parlay
	UserID      string
	Sport       string // chave normalizada, ex: "baseball_mlb"

	// Identidade do mercado: a âncora de correlação com o provedor são
	// os nomes de time gravados na colocação, nunca a ordem do array.
	EventID  string
	HomeTeam string
	AwayTeam string

	BetType            BetType
	TeamSelection      TeamSide  // moneyline/spread
	OverUnderSelection OverUnder // total
	SpreadValue        *float64  // linha com sinal, ex: -7.5
	TotalPoints        *float64  // linha de total

	OddValue          float64
	StakeCents        int64
	PotentialWinCents int64 // pré-calculado na colocação
	ResultCents       int64 // definido na liquidação; >0 só em WON/PUSHED

	Status    BetStatus
	CreatedAt time.Time
	SettledAt *time.Time // gravado exatamente uma vez, na transição terminal
}

// IsParlayLeg indica se a aposta pertence a um parlay.
func (w Wager) IsParlayLeg() bool { return w.ParentBetID != "" }

// TeamScore é o placar de um time como reportado pelo provedor.
type TeamScore struct {
	Name  string
	Score int
}

// GameResult é o registro read-only vindo do provedor de resultados.
// Efêmero: nunca persistido por este núcleo.
type GameResult struct {
	EventID   string
	HomeTeam  string
	AwayTeam  string
	Completed bool
	Scores    []TeamScore
}

// Outcome é o veredito de um avaliador para uma aposta.
type Outcome struct {
	Status      BetStatus
	ResultCents int64
	Reason      string
}

// SettlementResult é o registro coletado pro write set de um ciclo.
// Só entra no batch quando uma determinação terminal foi alcançada.
type SettlementResult struct {
	WagerID     string
	Status      BetStatus
	ResultCents int64
	Reason      string
}
