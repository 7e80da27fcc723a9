package domain

import "context"

type Role string

const (
	RolePublic     Role = "public"
	RoleClaimant   Role = "claimant"
	RoleRespondent Role = "respondent"
	RoleArbitrator Role = "arbitrator"
)

// SectionOwnerAny marks a section every role can see.
const SectionOwnerAny = "*"

var KnownRoles = []Role{RolePublic, RoleClaimant, RoleRespondent, RoleArbitrator}

// Visibility is the outcome of a role check: the effective role and the visible sections.
type Visibility struct {
	Role    Role     `json:"role"`
	Visible []string `json:"visible"`
}

func (v Visibility) Allows(section string) bool {
	for _, name := range v.Visible {
		if name == section {
			return true
		}
	}
	return false
}

// VisibilityEngine decides which sections a role may see. Each section lists the roles that
// own it; SectionOwnerAny opens it to everyone.
type VisibilityEngine interface {
	Evaluate(ctx context.Context, role string, sections map[string][]string) (Visibility, error)
}
