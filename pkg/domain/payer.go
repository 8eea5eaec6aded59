package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "lineacaptura/pkg/domain-errors"
	lcstrings "lineacaptura/pkg/platform/strings"
)

// PayerType is the wire code for the kind of payer.
type PayerType string

const (
	PayerIndividual   PayerType = "F"
	PayerOrganization PayerType = "M"
)

// Identifier lengths enforced by the tax authority.
const (
	NationalIDLength        = 18
	IndividualTaxIDLength   = 13
	OrganizationTaxIDLength = 12
)

// Individual is a natural person paying the fees.
type Individual struct {
	NationalID      string `json:"national_id"`
	TaxID           string `json:"tax_id"`
	FirstName       string `json:"first_name"`
	PaternalSurname string `json:"paternal_surname"`
	MaternalSurname string `json:"maternal_surname,omitempty"`
}

// Organization is a legal entity paying the fees.
type Organization struct {
	TaxID     string `json:"tax_id"`
	LegalName string `json:"legal_name"`
}

// Payer holds exactly one of Individual or Organization.
type Payer struct {
	Individual   *Individual   `json:"individual,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// NewIndividualPayer normalizes and validates an individual payer.
func NewIndividualPayer(in Individual) (Payer, error) {
	in.NationalID = strings.ToUpper(strings.TrimSpace(in.NationalID))
	in.TaxID = strings.ToUpper(strings.TrimSpace(in.TaxID))
	in.FirstName = lcstrings.CollapseSpaces(in.FirstName)
	in.PaternalSurname = lcstrings.CollapseSpaces(in.PaternalSurname)
	in.MaternalSurname = lcstrings.CollapseSpaces(in.MaternalSurname)
	p := Payer{Individual: &in}
	return p, p.Validate()
}

// NewOrganizationPayer normalizes and validates an organization payer.
func NewOrganizationPayer(in Organization) (Payer, error) {
	in.TaxID = strings.ToUpper(strings.TrimSpace(in.TaxID))
	in.LegalName = lcstrings.CollapseSpaces(in.LegalName)
	p := Payer{Organization: &in}
	return p, p.Validate()
}

// Validate checks that exactly one variant is populated with well-sized
// identifiers. Lengths count characters, since RFCs may contain Ñ.
func (p Payer) Validate() error {
	switch {
	case p.Individual != nil && p.Organization != nil:
		return dErrors.New(dErrors.CodeValidation, "payer must be either an individual or an organization")
	case p.Individual != nil:
		in := p.Individual
		if utf8.RuneCountInString(in.NationalID) != NationalIDLength {
			return dErrors.New(dErrors.CodeValidation, "CURP must have 18 characters")
		}
		if utf8.RuneCountInString(in.TaxID) != IndividualTaxIDLength {
			return dErrors.New(dErrors.CodeValidation, "RFC for individuals must have 13 characters")
		}
		if in.FirstName == "" || in.PaternalSurname == "" {
			return dErrors.New(dErrors.CodeValidation, "name and paternal surname are required")
		}
		return nil
	case p.Organization != nil:
		org := p.Organization
		if utf8.RuneCountInString(org.TaxID) != OrganizationTaxIDLength {
			return dErrors.New(dErrors.CodeValidation, "RFC for organizations must have 12 characters")
		}
		if org.LegalName == "" {
			return dErrors.New(dErrors.CodeValidation, "legal name is required")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "payer identity is required")
	}
}

// Type returns the wire code of the populated variant.
func (p Payer) Type() PayerType {
	if p.Organization != nil {
		return PayerOrganization
	}
	return PayerIndividual
}

// TaxID returns the RFC of whichever variant is populated.
func (p Payer) TaxID() string {
	switch {
	case p.Individual != nil:
		return p.Individual.TaxID
	case p.Organization != nil:
		return p.Organization.TaxID
	}
	return ""
}
