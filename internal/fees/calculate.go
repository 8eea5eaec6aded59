package fees

import (
	"github.com/shopspring/decimal"

	"lineacaptura/internal/catalog/models"
	dErrors "lineacaptura/pkg/domain-errors"
)

// Item is one selected service with its quantity.
type Item struct {
	Service  models.Service
	Quantity int
}

// Line holds the amounts computed for one item.
//
// Fee, Tax and Total are the natural amounts. FeeAmount, TaxAmount and
// ItemTotal are what gets transmitted: they equal the natural amounts except
// on the last line, which absorbs the rounding residual.
type Line struct {
	Service  models.Service
	Quantity int

	UnitFee decimal.Decimal
	UnitTax decimal.Decimal
	Fee     decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal

	FeeAmount decimal.Decimal
	TaxAmount decimal.Decimal
	ItemTotal decimal.Decimal
}

// Totals aggregates every line of a calculation.
type Totals struct {
	FeeSubtotal decimal.Decimal `json:"fee_subtotal"`
	TaxSubtotal decimal.Decimal `json:"tax_subtotal"`
	Unrounded   decimal.Decimal `json:"unrounded_total"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Residual    decimal.Decimal `json:"residual"`
}

// Calculation is the result of pricing a selection.
type Calculation struct {
	Lines  []Line
	Totals Totals
}

// Calculate prices the items in order and reconciles the rounded grand total
// against the sum of the lines.
func Calculate(items []Item) (Calculation, error) {
	if len(items) == 0 {
		return Calculation{}, dErrors.New(dErrors.CodeValidation, "at least one service is required")
	}

	calc := Calculation{Lines: make([]Line, 0, len(items))}
	feeSum, taxSum, lineSum := decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		if it.Quantity < 1 {
			return Calculation{}, dErrors.New(dErrors.CodeValidation, "quantity must be at least 1")
		}
		line := priceItem(it)
		feeSum = feeSum.Add(line.Fee)
		taxSum = taxSum.Add(line.Tax)
		lineSum = lineSum.Add(roundCents(line.Total))
		calc.Lines = append(calc.Lines, line)
	}

	unrounded := feeSum.Add(taxSum)
	grand := unrounded.Round(0)
	calc.Totals = Totals{
		FeeSubtotal: feeSum,
		TaxSubtotal: taxSum,
		Unrounded:   unrounded,
		GrandTotal:  grand,
		Residual:    grand.Sub(lineSum),
	}
	absorbResidual(&calc.Lines[len(calc.Lines)-1], calc.Totals.Residual)
	return calc, nil
}

func priceItem(it Item) Line {
	qty := decimal.NewFromInt(int64(it.Quantity))
	fee := it.Service.UnitFee.Mul(qty)
	line := Line{
		Service:  it.Service,
		Quantity: it.Quantity,
		UnitFee:  it.Service.UnitFee,
		UnitTax:  decimal.Zero,
		Fee:      fee,
		Tax:      decimal.Zero,
	}
	if it.Service.Taxed {
		line.UnitTax = roundCents(it.Service.UnitFee.Mul(TaxRate))
		line.Tax = roundCents(fee.Mul(TaxRate))
	}
	line.Total = line.Fee.Add(line.Tax)
	line.FeeAmount = roundCents(line.Fee)
	line.TaxAmount = roundCents(line.Tax)
	line.ItemTotal = roundCents(line.Total)
	return line
}

// absorbResidual moves the rounding residual onto the tax line of a taxed
// item, or onto the fee line otherwise.
func absorbResidual(last *Line, residual decimal.Decimal) {
	if residual.IsZero() {
		return
	}
	if last.Service.Taxed {
		last.TaxAmount = last.TaxAmount.Add(residual)
	} else {
		last.FeeAmount = last.FeeAmount.Add(residual)
	}
	last.ItemTotal = last.ItemTotal.Add(residual)
}
