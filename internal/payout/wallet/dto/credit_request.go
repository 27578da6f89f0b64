package dto

// CreditRequest representa o payload para creditar prêmio/estorno no wallet-service.
// ExternalRef garante idempotência do crédito no lado da carteira.
type CreditRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}
