package models

import (
	"time"

	"github.com/shopspring/decimal"

	"lineacaptura/pkg/domain"
)

// PrimaryGrouping marks services offered directly to payers; secondary rows
// (tax concepts and the like) are never listed for selection.
const PrimaryGrouping = "P"

// Authority is an issuing authority (dependencia).
type Authority struct {
	ID        domain.AuthorityID `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	ShortCode string             `json:"short_code" yaml:"short_code"`
	AdminUnit string             `json:"admin_unit" yaml:"admin_unit"`
}

// Service is a payable service (tramite) and its accounting metadata.
type Service struct {
	ID                  domain.ServiceID `json:"id" yaml:"id"`
	Description         string           `json:"description" yaml:"description"`
	Homoclave           string           `json:"homoclave" yaml:"homoclave"`
	Variant             string           `json:"variant" yaml:"variant"`
	AuthorityAcronym    string           `json:"authority_acronym" yaml:"authority_acronym"`
	ReservedUse         string           `json:"reserved_use" yaml:"reserved_use"`
	UnitFee             decimal.Decimal  `json:"unit_fee" yaml:"unit_fee"`
	Taxed               bool             `json:"taxed" yaml:"taxed"`
	LegalBasis          string           `json:"legal_basis" yaml:"legal_basis"`
	ValidFrom           *time.Time       `json:"valid_from,omitempty" yaml:"valid_from"`
	ValidTo             *time.Time       `json:"valid_to,omitempty" yaml:"valid_to"`
	CaptureLineValidity string           `json:"capture_line_validity" yaml:"capture_line_validity"`
	ValidityType        string           `json:"validity_type" yaml:"validity_type"`
	AccountingCode      string           `json:"accounting_code" yaml:"accounting_code"`
	GroupingID          string           `json:"grouping_id" yaml:"grouping_id"`
	GroupingType        string           `json:"grouping_type" yaml:"grouping_type"`
	PeriodicityCode     string           `json:"periodicity_code" yaml:"periodicity_code"`
	PeriodCode          string           `json:"period_code" yaml:"period_code"`
	Mandatory           bool             `json:"mandatory" yaml:"mandatory"`
	AmountName          string           `json:"amount_name" yaml:"amount_name"`
	Variable            bool             `json:"variable" yaml:"variable"`
	InflationUpdate     bool             `json:"inflation_update" yaml:"inflation_update"`
	Surcharges          bool             `json:"surcharges" yaml:"surcharges"`
	FiscalFine          bool             `json:"fiscal_fine" yaml:"fiscal_fine"`
	Compensation        bool             `json:"compensation" yaml:"compensation"`
	CreditBalance       bool             `json:"credit_balance" yaml:"credit_balance"`
	CreatedAt           time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" yaml:"updated_at"`
}

// IsPrimary reports whether the service can be selected by a payer.
func (s Service) IsPrimary() bool {
	return s.GroupingType == PrimaryGrouping
}

// Stats describes what the catalog cache currently holds.
type Stats struct {
	Driver                string        `json:"driver"`
	TTL                   time.Duration `json:"-"`
	TTLMinutes            float64       `json:"ttl_minutes"`
	AuthoritiesCached     bool          `json:"authorities_cached"`
	AuthorityServiceLists int           `json:"authority_service_lists_cached"`
	TotalAuthorities      int           `json:"total_authorities"`
}
