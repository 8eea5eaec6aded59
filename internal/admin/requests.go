package admin

import (
	"lineacaptura/internal/catalog"
	"lineacaptura/pkg/domain"
	"lineacaptura/pkg/platform/httputil"
)

// ClearCacheRequest is the body of POST /admin/cache/clear.
type ClearCacheRequest struct {
	Scope       string              `json:"scope" validate:"required,oneof=all authorities authority_services"`
	AuthorityID *domain.AuthorityID `json:"authority_id,omitempty" validate:"omitempty,gt=0"`
}

// Validate implements httputil.Validatable.
func (r *ClearCacheRequest) Validate() error {
	return httputil.ValidateStruct(r)
}

// ParsedScope returns the validated scope.
func (r *ClearCacheRequest) ParsedScope() catalog.Scope {
	return catalog.Scope(r.Scope)
}
