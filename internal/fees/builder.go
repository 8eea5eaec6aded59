package fees

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
)

const (
	requestedAtLayout = "02/01/2006 15:04"
	dateLayout        = "02/01/2006"
)

// Input is everything needed to assemble one capture-line request.
type Input struct {
	RecordID    domain.RecordID
	Authority   models.Authority
	Items       []Item
	Payer       domain.Payer
	GeneratedAt time.Time
}

// Result is the assembled request plus the values persisted alongside it.
type Result struct {
	RequestID   string
	Document    Document
	Snapshot    Snapshot
	Calculation Calculation
	ValidUntil  time.Time
}

// Builder assembles wire documents in a fixed time zone.
type Builder struct {
	location *time.Location
}

// NewBuilder returns a Builder rendering dates in loc. A nil loc means UTC.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{location: loc}
}

// RequestID derives the request identifier: short code, administrative unit,
// two-digit year and the record id zero-padded to ten digits.
func RequestID(authority models.Authority, recordID domain.RecordID, at time.Time) string {
	return fmt.Sprintf("%s%s%s%010d", authority.ShortCode, authority.AdminUnit, at.Format("06"), int64(recordID))
}

// Build prices the items and assembles the document and snapshot.
func (b *Builder) Build(in Input) (*Result, error) {
	if err := in.Payer.Validate(); err != nil {
		return nil, err
	}
	if in.RecordID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id must be assigned before building a document")
	}
	calc, err := Calculate(in.Items)
	if err != nil {
		return nil, err
	}

	now := in.GeneratedAt.In(b.location)
	validUntil := now.AddDate(0, 1, 0)
	requestID := RequestID(in.Authority, in.RecordID, now)

	doc := Document{
		GeneralData: GeneralData{
			RequestID:     requestID,
			AuthorityCode: in.Authority.ShortCode,
			AdminUnit:     in.Authority.AdminUnit,
			Payer:         in.Payer,
			CaptureLine: CaptureLineData{
				RequestedAt: now.Format(requestedAtLayout),
				Amount:      calc.Totals.GrandTotal.IntPart(),
				ValidUntil:  validUntil.Format(dateLayout),
			},
		},
		Procedures: buildProcedures(calc.Lines, now.Format(dateLayout)),
	}

	return &Result{
		RequestID:   requestID,
		Document:    doc,
		Snapshot:    NewSnapshot(in.Authority, calc, now),
		Calculation: calc,
		ValidUntil:  validUntil,
	}, nil
}

func buildProcedures(lines []Line, accruedOn string) Procedures {
	procs := Procedures{Items: make([]Procedure, 0, len(lines))}
	sequence := 1
	for i, line := range lines {
		concepts := []Concept{newConcept(sequence, GroupingFee, line.Service.AccountingCode, line, line.FeeAmount, accruedOn)}
		sequence++
		if line.Service.Taxed {
			concepts = append(concepts, newConcept(sequence, GroupingTax, TaxConceptCode, line, line.TaxAmount, accruedOn))
			sequence++
		}
		procs.Items = append(procs.Items, Procedure{
			Number:       i + 1,
			Homoclave:    line.Service.Homoclave,
			Variant:      line.Service.Variant,
			ConceptCount: len(concepts),
			Total:        NewAmount(roundCents(line.ItemTotal)),
			Concepts:     Concepts{Items: concepts},
		})
	}
	return procs
}

func newConcept(sequence int, grouping, code string, line Line, amount decimal.Decimal, accruedOn string) Concept {
	value := NewAmount(roundCents(amount))
	txns := make([]Transaction, 0, len(TransactionCodes))
	for _, tc := range TransactionCodes {
		txns = append(txns, Transaction{Code: tc, Value: value})
	}
	return Concept{
		Sequence: sequence,
		Code:     code,
		Grouping: Grouping{ID: groupingID(line.Service.GroupingID), Type: grouping},
		Icep: IcepData{
			PeriodicityCode: line.Service.PeriodicityCode,
			PeriodCode:      line.Service.PeriodCode,
			AccruedOn:       accruedOn,
		},
		TotalContributions: value,
		Total:              value,
		Payments:           Transactions{Items: txns},
	}
}

// groupingID parses the catalog grouping id, falling back to zero.
func groupingID(raw string) int {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return id
}
