package fees

import (
	"time"

	"lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
)

const snapshotTimeLayout = "2006-01-02 15:04:05"

// Snapshot freezes the catalog data and computed amounts a capture line was
// generated from, so later catalog edits do not change historical records.
type Snapshot struct {
	Services    []ServiceSnapshot `json:"tramites"`
	Summary     SnapshotSummary   `json:"resumen"`
	Authority   AuthoritySnapshot `json:"dependencia"`
	GeneratedAt string            `json:"fecha_generacion"`
}

type SnapshotSummary struct {
	ServiceCount int    `json:"total_tramites_seleccionados"`
	FeeSubtotal  Amount `json:"suma_cuotas"`
	TaxSubtotal  Amount `json:"suma_iva"`
	GrandTotal   int64  `json:"gran_total"`
}

type AuthoritySnapshot struct {
	ID        domain.AuthorityID `json:"id"`
	Name      string             `json:"nombre"`
	ShortCode string             `json:"clave_dependencia"`
	AdminUnit string             `json:"unidad_administrativa"`
}

// ServiceSnapshot is one selected service with every catalog field and the
// amounts computed for it.
type ServiceSnapshot struct {
	ServiceID        domain.ServiceID `json:"tramite_id_original"`
	Quantity         int              `json:"cantidad"`
	Description      string           `json:"descripcion"`
	Homoclave        string           `json:"clave_tramite"`
	Variant          string           `json:"variante"`
	AuthorityAcronym string           `json:"clave_dependencia_siglas"`
	ReservedUse      string           `json:"tramite_usoreservado"`

	UnitFee  Amount `json:"cuota_unitaria"`
	FeeTotal Amount `json:"importe_cuota_total"`
	UnitTax  Amount `json:"iva_unitario"`
	TaxTotal Amount `json:"importe_iva_total"`
	Total    Amount `json:"importe_total"`

	LegalBasis          string  `json:"fundamento_legal"`
	ValidFrom           *string `json:"vigencia_tramite_de"`
	ValidTo             *string `json:"vigencia_tramite_al"`
	CaptureLineValidity string  `json:"vigencia_lineacaptura"`
	ValidityType        string  `json:"tipo_vigencia"`

	AccountingCode  string `json:"clave_contable"`
	GroupingID      string `json:"agrupador"`
	GroupingType    string `json:"tipo_agrupador"`
	PeriodicityCode string `json:"clave_periodicidad"`
	PeriodCode      string `json:"clave_periodo"`

	Mandatory       bool   `json:"obligatorio"`
	AmountName      string `json:"nombre_monto"`
	Variable        bool   `json:"variable"`
	InflationUpdate bool   `json:"actualizacion"`
	Surcharges      bool   `json:"recargos"`
	FiscalFine      bool   `json:"multa_correccionfiscal"`
	Compensation    bool   `json:"compensacion"`
	CreditBalance   bool   `json:"saldo_favor"`

	CreatedAt *string `json:"created_at_original"`
	UpdatedAt *string `json:"updated_at_original"`
}

// NewSnapshot captures the calculation for the given authority.
func NewSnapshot(authority models.Authority, calc Calculation, generatedAt time.Time) Snapshot {
	snap := Snapshot{
		Services: make([]ServiceSnapshot, 0, len(calc.Lines)),
		Summary: SnapshotSummary{
			ServiceCount: len(calc.Lines),
			FeeSubtotal:  NewAmount(calc.Totals.FeeSubtotal),
			TaxSubtotal:  NewAmount(calc.Totals.TaxSubtotal),
			GrandTotal:   calc.Totals.GrandTotal.IntPart(),
		},
		Authority: AuthoritySnapshot{
			ID:        authority.ID,
			Name:      authority.Name,
			ShortCode: authority.ShortCode,
			AdminUnit: authority.AdminUnit,
		},
		GeneratedAt: generatedAt.Format(snapshotTimeLayout),
	}
	for _, line := range calc.Lines {
		snap.Services = append(snap.Services, serviceSnapshot(line))
	}
	return snap
}

func serviceSnapshot(line Line) ServiceSnapshot {
	svc := line.Service
	return ServiceSnapshot{
		ServiceID:           svc.ID,
		Quantity:            line.Quantity,
		Description:         svc.Description,
		Homoclave:           svc.Homoclave,
		Variant:             svc.Variant,
		AuthorityAcronym:    svc.AuthorityAcronym,
		ReservedUse:         svc.ReservedUse,
		UnitFee:             NewAmount(line.UnitFee),
		FeeTotal:            NewAmount(line.Fee),
		UnitTax:             NewAmount(line.UnitTax),
		TaxTotal:            NewAmount(line.Tax),
		Total:               NewAmount(line.Total),
		LegalBasis:          svc.LegalBasis,
		ValidFrom:           formatDate(svc.ValidFrom, "2006-01-02"),
		ValidTo:             formatDate(svc.ValidTo, "2006-01-02"),
		CaptureLineValidity: svc.CaptureLineValidity,
		ValidityType:        svc.ValidityType,
		AccountingCode:      svc.AccountingCode,
		GroupingID:          svc.GroupingID,
		GroupingType:        svc.GroupingType,
		PeriodicityCode:     svc.PeriodicityCode,
		PeriodCode:          svc.PeriodCode,
		Mandatory:           svc.Mandatory,
		AmountName:          svc.AmountName,
		Variable:            svc.Variable,
		InflationUpdate:     svc.InflationUpdate,
		Surcharges:          svc.Surcharges,
		FiscalFine:          svc.FiscalFine,
		Compensation:        svc.Compensation,
		CreditBalance:       svc.CreditBalance,
		CreatedAt:           formatTime(svc.CreatedAt),
		UpdatedAt:           formatTime(svc.UpdatedAt),
	}
}

func formatDate(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	return formatDate(&t, snapshotTimeLayout)
}
