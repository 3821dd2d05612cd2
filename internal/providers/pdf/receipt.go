package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ReceiptData struct {
	StoreName       string
	InvoiceNumber   string
	IssuedAt        string
	OrderType       string
	PaymentMethod   string
	Status          string
	DeliveryStatus  string
	DeliveryAddress string

	Items []ReceiptItem

	Total    string
	Discount string
	Paid     string
}

type ReceiptItem struct {
	SKU      string
	Batch    string
	Qty      int64
	Amount   string
	Redeemed bool
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if receipt.InvoiceNumber == "" {
		return nil, fmt.Errorf("receipt: invoice number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(8, receipt.StoreName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Receipt", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Invoice number: "+receipt.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date: "+receipt.IssuedAt, props.Text{Top: 4}),
			text.New("Order: "+receipt.OrderType, props.Text{Top: 8}),
			text.New("Payment: "+receipt.PaymentMethod, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Status: "+receipt.Status, props.Text{Top: 0, Align: align.Right}),
			text.New("Delivery: "+receipt.DeliveryStatus, props.Text{Top: 4, Align: align.Right}),
		),
	)

	if receipt.DeliveryAddress != "" {
		m.AddRow(15,
			col.New(12).Add(
				text.New("Ship to", props.Text{Style: fontstyle.Bold}),
				text.New(receipt.DeliveryAddress, props.Text{Top: 5}),
			),
		)
	}

	m.AddRow(10,
		text.NewCol(5, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Batch", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range receipt.Items {
		description := item.SKU
		if item.Redeemed {
			description += " (points)"
		}
		m.AddRow(8,
			text.NewCol(5, description, props.Text{Size: 9}),
			text.NewCol(3, item.Batch, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, receipt.Total, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Discount", props.Text{Size: 9}),
		text.NewCol(2, receipt.Discount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, receipt.Paid, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}
