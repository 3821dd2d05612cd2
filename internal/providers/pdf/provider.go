package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Provider renders printable documents.
type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
