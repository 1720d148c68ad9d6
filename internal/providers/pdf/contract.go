package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateContract(ctx context.Context, data ContractData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data.ContractID == "" {
		return nil, errors.New("contract id is required")
	}
	if data.Kind == KindSigned && data.SignedAt == nil {
		return nil, errors.New("signed document requires signed_at")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Energy Supply Contract (Draft)"
	if data.Kind == KindSigned {
		title = "Energy Supply Contract"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	meta := []string{
		"Contract: " + data.ContractID,
		"Generated: " + data.GeneratedAt.UTC().Format(timestampLayout),
	}
	if data.SignedAt != nil {
		meta = append(meta, "Signed: "+data.SignedAt.UTC().Format(timestampLayout))
	}
	metaCol := col.New(12)
	for i, value := range meta {
		metaCol.Add(text.New(value, props.Text{Size: 9, Top: float64(i * 5)}))
	}
	m.AddRow(float64(len(meta)*5+4), metaCol)

	m.AddRow(2, line.NewCol(12))

	party := data.Counterparty
	plan := data.Offer
	m.AddRow(40,
		col.New(6).Add(
			text.New("Counterparty", props.Text{Style: fontstyle.Bold}),
			text.New(party.Name, props.Text{Top: 6}),
			text.New(party.Street, props.Text{Top: 11}),
			text.New(party.PostalCode+" "+party.City, props.Text{Top: 16}),
			text.New(party.Country, props.Text{Top: 21}),
			text.New(party.Email, props.Text{Top: 26}),
		),
		col.New(6).Add(
			text.New("Offer", props.Text{Style: fontstyle.Bold}),
			text.New(fmt.Sprintf("%s (%s)", plan.Name, plan.Code), props.Text{Top: 6}),
			text.New(fmt.Sprintf("%s per %s", plan.Price, billingUnit(plan.BillingPeriod)), props.Text{Top: 11}),
			text.New(fmt.Sprintf("Minimum term: %d month(s)", plan.MinTermMonths), props.Text{Top: 16}),
			text.New(fmt.Sprintf("Notice period: %d day(s)", plan.NoticePeriodDays), props.Text{Top: 21}),
		),
	)

	m.AddRow(2, line.NewCol(12))

	if data.Kind == KindSigned {
		m.AddRow(15,
			text.NewCol(12, "This contract was signed electronically by "+party.Name+".", props.Text{
				Size: 10,
				Top:  5,
			}),
		)
	} else {
		m.AddRow(15,
			text.NewCol(12, "This draft is not binding until signed by both parties.", props.Text{
				Size:  10,
				Top:   5,
				Style: fontstyle.Italic,
			}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate contract pdf: %w", err)
	}

	out := doc.GetBytes()
	if len(out) == 0 {
		return nil, errors.New("generate contract pdf: empty document")
	}
	return out, nil
}

func billingUnit(period string) string {
	switch period {
	case "monthly", "":
		return "month"
	case "yearly", "annual":
		return "year"
	default:
		return period
	}
}

// FormatPrice renders integer cents as a decimal amount with currency code.
func FormatPrice(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

