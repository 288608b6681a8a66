// Package knowledge holds the declarative classification knowledge for DITA
// packages: canonical role names and the versioned pattern library. It
// performs no filesystem inspection beyond loading its own YAML and no
// classification logic of its own.
package knowledge

// Map roles assigned during discovery. A map may match several patterns but
// must resolve to exactly one role.
const (
	RoleMain      = "MAIN"
	RoleAbstract  = "ABSTRACT"
	RoleGlossary  = "GLOSSARY"
	RoleContainer = "CONTAINER"
	RoleContent   = "CONTENT"
	RoleUnknown   = "UNKNOWN"
)

// uniqueMapRoles are the map roles that must not appear more than once in a
// package. They drive the invariant checks.
var uniqueMapRoles = []string{RoleMain, RoleAbstract, RoleGlossary}

// UniqueMapRoles returns the roles that must be unique within a package.
func UniqueMapRoles() []string {
	out := make([]string, len(uniqueMapRoles))
	copy(out, uniqueMapRoles)
	return out
}
