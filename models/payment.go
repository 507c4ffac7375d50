package models

// HTTP API shapes of the gateway service.

type CreatePaymentRequest struct {
	Destination    string  `json:"destination"`
	Amount         float64 `json:"amount"`
	TimeoutSeconds int64   `json:"timeoutSeconds"`
	Seed           string  `json:"seed,omitempty"`
	Index          uint32  `json:"index,omitempty"`
}

type CreatePaymentResponse struct {
	PaymentId string  `json:"paymentId"`
	Address   string  `json:"address"`
	Amount    float64 `json:"amount"`
}

type PaymentStatusResponse struct {
	PaymentId       string  `json:"paymentId"`
	Status          string  `json:"status"`
	Address         string  `json:"address"`
	Destination     string  `json:"destination"`
	RequestedAmount float64 `json:"requestedAmount"`
	ObservedAmount  float64 `json:"observedAmount"`
}

// ConfirmationEvent is one confirmed transaction reported by the push
// channel for a watched account.
type ConfirmationEvent struct {
	Account          string
	Hash             string
	ReceivingAddress string
}
