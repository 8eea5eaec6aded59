// Package flow sequences the capture-line wizard. The current stage is never
// stored; it is derived from which pieces of data the session holds.
package flow

import (
	"time"

	"lineacaptura/pkg/domain"
)

// Stage is a step of the wizard.
type Stage string

const (
	StageStart           Stage = "start"
	StageAuthorityChosen Stage = "authority-chosen"
	StageServicesChosen  Stage = "services-chosen"
	StagePayerCaptured   Stage = "payer-captured"
	StageFinalized       Stage = "finalized"
)

// Endpoints owned by each stage.
const (
	EndpointStart       = "/inicio"
	EndpointServices    = "/tramite"
	EndpointPayer       = "/persona"
	EndpointSummary     = "/pago"
	EndpointGenerate    = "/generar-linea"
	EndpointCaptureLine = "/linea-captura"
	EndpointBack        = "/regresar"
)

// State is the per-session flow data. Presence of each field is what matters.
type State struct {
	AuthorityID *domain.AuthorityID `json:"authority_id,omitempty"`
	Services    domain.Selection    `json:"services,omitempty"`
	Payer       *domain.Payer       `json:"payer,omitempty"`
	Finalized   *Finalization       `json:"finalized,omitempty"`
}

// Finalization replaces all other state once a document has been generated.
type Finalization struct {
	RecordID domain.RecordID `json:"record_id"`
	At       time.Time       `json:"at"`
}

// Derive computes the stage the session is in. Later rules override earlier
// ones, and finalization overrides everything.
func Derive(s State) Stage {
	stage := StageStart
	if s.AuthorityID != nil && len(s.Services) == 0 {
		stage = StageAuthorityChosen
	}
	if len(s.Services) > 0 && s.Payer == nil {
		stage = StageServicesChosen
	}
	if s.Payer != nil {
		stage = StagePayerCaptured
	}
	if s.Finalized != nil {
		stage = StageFinalized
	}
	return stage
}

// Complete reports whether the state holds every piece of data its derived
// stage builds on. Incomplete states cannot be repaired and restart the flow.
func Complete(s State) bool {
	switch Derive(s) {
	case StageServicesChosen:
		return s.AuthorityID != nil
	case StagePayerCaptured:
		return s.AuthorityID != nil && len(s.Services) > 0
	}
	return true
}

// Endpoint returns the page the stage renders on.
func (s Stage) Endpoint() string {
	switch s {
	case StageAuthorityChosen:
		return EndpointServices
	case StageServicesChosen:
		return EndpointPayer
	case StagePayerCaptured:
		return EndpointSummary
	case StageFinalized:
		return EndpointCaptureLine
	default:
		return EndpointStart
	}
}

// StageForStep maps the step names used by the back control ("tramite",
// "persona", "pago") to the stage being left.
func StageForStep(step string) (Stage, bool) {
	switch step {
	case "tramite":
		return StageAuthorityChosen, true
	case "persona":
		return StageServicesChosen, true
	case "pago":
		return StagePayerCaptured, true
	}
	return "", false
}

// Back removes exactly the data owned by the stage being left. Leaving a
// stage the session is not in, or any non-wizard stage, changes nothing.
func Back(s State, leaving Stage) State {
	if Derive(s) != leaving {
		return s
	}
	switch leaving {
	case StageAuthorityChosen:
		s.AuthorityID = nil
	case StageServicesChosen:
		s.Services = nil
	case StagePayerCaptured:
		s.Payer = nil
	}
	return s
}

// ChooseAuthority starts a fresh selection for the given authority.
func ChooseAuthority(id domain.AuthorityID) State {
	return State{AuthorityID: &id}
}

// ChooseServices records the selection, keeping the chosen authority.
func (s State) ChooseServices(sel domain.Selection) State {
	s.Services = sel
	s.Payer = nil
	return s
}

// CapturePayer records the payer identity.
func (s State) CapturePayer(p domain.Payer) State {
	s.Payer = &p
	return s
}

// Finalize drops everything except the finalization marker.
func Finalize(recordID domain.RecordID, at time.Time) State {
	return State{Finalized: &Finalization{RecordID: recordID, At: at}}
}
