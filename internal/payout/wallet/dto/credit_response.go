package dto

// CreditResponse representa a resposta do endpoint de crédito do wallet-service.
type CreditResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}
