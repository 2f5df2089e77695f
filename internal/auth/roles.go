package auth

// #region imports
import (
	"github.com/danielpatrickdp/opsagent/internal/classify"
)

// #endregion imports

// #region roles

// Role levels form a strict hierarchy. Approval gates compare the
// actor's level against the minimum for the incident's approval
// severity.
const (
	RoleJuniorDev  = "junior_dev"
	RoleDev        = "dev"
	RoleSeniorDev  = "senior_dev"
	RoleTeamLead   = "team_lead"
	RoleCTO        = "cto"
)

var roleLevels = map[string]int{
	RoleJuniorDev: 1,
	RoleDev:       2,
	RoleSeniorDev: 3,
	RoleTeamLead:  4,
	RoleCTO:       5,
}

// Level returns 0 for unknown roles, which fails every gate.
func Level(role string) int { return roleLevels[role] }

// KnownRole reports whether the role is one of the hierarchy levels.
func KnownRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// FinalAuthority roles receive clearance reports when gated actions
// are taken by anyone below them.
func FinalAuthority(role string) bool { return role == RoleCTO }

// #endregion roles

// #region gates

var minLevels = map[classify.ApprovalSeverity]int{
	classify.ApprovalLow:     1,
	classify.ApprovalMedium:  2,
	classify.ApprovalHigh:    3,
	classify.ApprovalBlocker: 4,
}

// MinLevel is the lowest role level allowed to approve or override an
// incident of the given approval severity.
func MinLevel(sev classify.ApprovalSeverity) int {
	if lvl, ok := minLevels[sev]; ok {
		return lvl
	}
	return len(roleLevels) // unknown severities only clear at the top
}

// Allowed reports whether the role clears the gate for the severity.
func Allowed(role string, sev classify.ApprovalSeverity) bool {
	return Level(role) >= MinLevel(sev)
}

// #endregion gates
