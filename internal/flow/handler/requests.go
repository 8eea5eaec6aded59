package handler

import (
	"strings"

	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
	"lineacaptura/pkg/platform/httputil"
)

// ChooseAuthorityRequest is the body of POST /inicio.
type ChooseAuthorityRequest struct {
	AuthorityID domain.AuthorityID `json:"authority_id" validate:"required,gt=0"`
}

// Validate implements httputil.Validatable.
func (r *ChooseAuthorityRequest) Validate() error {
	return httputil.ValidateStruct(r)
}

// SelectedServiceRequest is one row of the services form.
type SelectedServiceRequest struct {
	ServiceID domain.ServiceID `json:"service_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"min=1,max=999"`
}

// ChooseServicesRequest is the body of POST /tramite.
type ChooseServicesRequest struct {
	Services []SelectedServiceRequest `json:"services" validate:"required,min=1,max=10,dive"`

	selection domain.Selection
}

// Validate checks field shapes, then the selection rules shared with the
// capture service (uniqueness in particular).
func (r *ChooseServicesRequest) Validate() error {
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	sel := make(domain.Selection, len(r.Services))
	for i, s := range r.Services {
		sel[i] = domain.SelectedService{ServiceID: s.ServiceID, Quantity: s.Quantity}
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	r.selection = sel
	return nil
}

// Selection returns the validated selection in submitted order.
func (r *ChooseServicesRequest) Selection() domain.Selection {
	return r.selection
}

// CapturePayerRequest is the body of POST /persona. PayerType selects which
// of the identity fields are read.
type CapturePayerRequest struct {
	PayerType       string `json:"payer_type" validate:"required,oneof=F M"`
	NationalID      string `json:"curp" validate:"max=18"`
	TaxID           string `json:"rfc" validate:"required,max=13"`
	FirstName       string `json:"first_name" validate:"max=100"`
	PaternalSurname string `json:"paternal_surname" validate:"max=100"`
	MaternalSurname string `json:"maternal_surname" validate:"max=100"`
	LegalName       string `json:"legal_name" validate:"max=254"`

	payer domain.Payer
}

// Validate normalizes the identity and builds the payer variant.
func (r *CapturePayerRequest) Validate() error {
	r.PayerType = strings.ToUpper(strings.TrimSpace(r.PayerType))
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}

	var (
		payer domain.Payer
		err   error
	)
	switch domain.PayerType(r.PayerType) {
	case domain.PayerIndividual:
		payer, err = domain.NewIndividualPayer(domain.Individual{
			NationalID:      r.NationalID,
			TaxID:           r.TaxID,
			FirstName:       r.FirstName,
			PaternalSurname: r.PaternalSurname,
			MaternalSurname: r.MaternalSurname,
		})
	case domain.PayerOrganization:
		payer, err = domain.NewOrganizationPayer(domain.Organization{
			TaxID:     r.TaxID,
			LegalName: r.LegalName,
		})
	default:
		return dErrors.New(dErrors.CodeValidation, "payer_type must be F or M")
	}
	if err != nil {
		return err
	}
	r.payer = payer
	return nil
}

// Payer returns the validated payer.
func (r *CapturePayerRequest) Payer() domain.Payer {
	return r.payer
}
