// Package authz is the access policy engine: pure decision functions over an
// actor and a target incidencia. All role comparisons live here so endpoints
// cannot drift apart.
package authz

import (
	"strings"

	"github.com/campus360/incidencias-service/internal/domain"
)

// IsAdministrator reports whether the actor's role grants administrator
// privileges. The role claim is matched case-insensitively.
func IsAdministrator(actor domain.Actor) bool {
	switch strings.ToLower(actor.Role) {
	case "administrador", "admin":
		return true
	}
	return false
}

// CanView reports whether the actor may read the incidencia.
func CanView(actor domain.Actor, incidencia *domain.Incidencia) bool {
	return IsAdministrator(actor) || incidencia.ReporterID == actor.SubjectID
}

// CanModifyState reports whether the actor may transition incidencia state.
// Administrators only; ownership grants no exception.
func CanModifyState(actor domain.Actor) bool {
	return IsAdministrator(actor)
}

// CanAssignResponsible reports whether the actor may assign a responsible
// party. Administrators only.
func CanAssignResponsible(actor domain.Actor) bool {
	return IsAdministrator(actor)
}

// CanDelete reports whether the actor may hard-delete an incidencia.
// Administrators only.
func CanDelete(actor domain.Actor) bool {
	return IsAdministrator(actor)
}

// CanComment reports whether the actor may comment on the incidencia.
func CanComment(actor domain.Actor, incidencia *domain.Incidencia) bool {
	return IsAdministrator(actor) || incidencia.ReporterID == actor.SubjectID
}

// CanViewInternalComments reports whether internal comments are visible to the
// actor.
func CanViewInternalComments(actor domain.Actor) bool {
	return IsAdministrator(actor)
}

// Visibility is the server-side read scope for an actor. A nil ReporterID
// means unrestricted; a non-nil ReporterID must be forced onto every listing
// predicate and can never be relaxed by caller-supplied filters.
type Visibility struct {
	ReporterID *string
}

// Unrestricted reports whether the scope imposes no reporter constraint.
func (v Visibility) Unrestricted() bool {
	return v.ReporterID == nil
}

// VisibilityFor returns the read scope for the actor.
func VisibilityFor(actor domain.Actor) Visibility {
	if IsAdministrator(actor) {
		return Visibility{}
	}
	reporterID := actor.SubjectID
	return Visibility{ReporterID: &reporterID}
}
