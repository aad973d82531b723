package domain

// Actor is the decoded identity of the caller as issued by the external
// authentication service. Role carries the raw role claim; interpretation
// belongs to the authz package.
type Actor struct {
	SubjectID string
	Role      string
}
