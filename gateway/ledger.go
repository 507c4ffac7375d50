package gateway

import (
	"context"

	"xnopay.com/payment-gateway/models"
)

// LedgerClient is the node surface a payment session needs. Implemented by
// nanorpc.Client; tests swap in a mock.
type LedgerClient interface {
	AccountInfo(ctx context.Context, account string) (models.AccountInfo, error)
	Pending(ctx context.Context, account string) ([]models.PendingEntry, error)
	GenerateWork(ctx context.Context, hash string) (string, error)
	AccountRepresentative(ctx context.Context, account string) (string, error)
	Process(ctx context.Context, block *models.StateBlock, subtype string) (string, error)
}
