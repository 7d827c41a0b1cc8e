// Package invariant implements the kernel's seven structural
// invariant checks, in both hard (panicking) and soft (error-returning)
// form. Checks run in a fixed order and stop at the first violation;
// message text is part of the stable contract and must not be
// reworded.
package invariant

import (
	"fmt"
	"sort"

	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/graphutil"
)

// Tag identifies which of the seven invariants was violated.
type Tag string

const (
	TagRoleIDFormat       Tag = "role_id_format"
	TagDependencyRefs     Tag = "dependency_refs"
	TagOrphanedOutput     Tag = "orphaned_output"
	TagDuplicateRoleIDs   Tag = "duplicate_role_ids"
	TagNoActiveRoles      Tag = "no_active_roles"
	TagEmptyResponsibilities Tag = "empty_responsibilities"
	TagCriticalCycle      Tag = "critical_cycle"
)

// Violation is a structured invariant failure: the offending tag plus
// a stable message. Message text appears in error output that tests
// match against, so it must not be reworded.
type Violation struct {
	Tag     Tag
	Message string
}

func (v *Violation) Error() string { return v.Message }

// ValidateInvariants runs all 7 checks in order, panicking on the
// first failure.
func ValidateInvariants(state *domain.OrgState) {
	if v := firstViolation(state); v != nil {
		panic(fmt.Sprintf("Invariant violation: [INVARIANT:%s] %s", v.Tag, v.Message))
	}
}

// TryValidateInvariants is the non-panicking variant, used by the
// codec-snapshot restore path so malformed input can never crash the
// host process. Returns the first Violation found, or nil if all
// invariants hold.
func TryValidateInvariants(state *domain.OrgState) *Violation {
	return firstViolation(state)
}

func firstViolation(state *domain.OrgState) *Violation {
	checks := []func(*domain.OrgState) *Violation{
		checkRoleIDFormat,
		checkDependencyRefs,
		checkOrphanedOutputs,
		checkDuplicateRoleIDs,
		checkAtLeastOneActiveRole,
		checkNoEmptyResponsibilities,
		checkNoCriticalCycles,
	}
	for _, check := range checks {
		if v := check(state); v != nil {
			return v
		}
	}
	return nil
}

func violation(tag Tag, format string, args ...any) *Violation {
	return &Violation{Tag: tag, Message: fmt.Sprintf(format, args...)}
}

// checkRoleIDFormat: every role.id must be ASCII [a-zA-Z0-9_-]+.
func checkRoleIDFormat(state *domain.OrgState) *Violation {
	for _, rid := range state.SortedRoleIDs() {
		if !isValidRoleID(rid) {
			return violation(TagRoleIDFormat,
				"Role ID %q contains invalid characters — must match [a-zA-Z0-9_-]+", rid)
		}
	}
	return nil
}

func isValidRoleID(rid string) bool {
	if rid == "" {
		return false
	}
	for _, ch := range rid {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			return false
		}
	}
	return true
}

// checkDependencyRefs: every dependency must reference existing
// roles.
func checkDependencyRefs(state *domain.OrgState) *Violation {
	for _, dep := range state.Dependencies {
		if _, ok := state.Roles[dep.FromRoleID]; !ok {
			return violation(TagDependencyRefs,
				"Dependency from_role_id=%q does not exist in roles", dep.FromRoleID)
		}
		if _, ok := state.Roles[dep.ToRoleID]; !ok {
			return violation(TagDependencyRefs,
				"Dependency to_role_id=%q does not exist in roles", dep.ToRoleID)
		}
	}
	return nil
}

// checkOrphanedOutputs: every produced_output must be consumed as a
// required_input somewhere.
func checkOrphanedOutputs(state *domain.OrgState) *Violation {
	allInputs := make(map[string]struct{})
	for _, role := range state.Roles {
		for _, in := range role.RequiredInputs {
			allInputs[in] = struct{}{}
		}
	}
	for _, rid := range state.SortedRoleIDs() {
		role := state.Roles[rid]
		outputs := append([]string(nil), role.ProducedOutputs...)
		sort.Strings(outputs)
		for _, out := range outputs {
			if _, ok := allInputs[out]; !ok {
				return violation(TagOrphanedOutput,
					"Role %q produces output %q that no role consumes as required_input", role.ID, out)
			}
		}
	}
	return nil
}

// checkDuplicateRoleIDs: a Go map cannot hold duplicate keys, so this
// always passes; kept so the fixed check order stays complete and the
// message remains defined if the storage ever changes shape.
func checkDuplicateRoleIDs(state *domain.OrgState) *Violation {
	seen := make(map[string]struct{}, len(state.Roles))
	for rid := range state.Roles {
		if _, ok := seen[rid]; ok {
			return violation(TagDuplicateRoleIDs, "Duplicate role IDs detected")
		}
		seen[rid] = struct{}{}
	}
	return nil
}

// checkAtLeastOneActiveRole: at least one role must be active, if any
// roles exist.
func checkAtLeastOneActiveRole(state *domain.OrgState) *Violation {
	if len(state.Roles) == 0 {
		return nil
	}
	for _, role := range state.Roles {
		if role.Active {
			return nil
		}
	}
	return violation(TagNoActiveRoles, "No active roles remain in the organization")
}

// checkNoEmptyResponsibilities: every role must have at least one
// responsibility.
func checkNoEmptyResponsibilities(state *domain.OrgState) *Violation {
	for _, rid := range state.SortedRoleIDs() {
		role := state.Roles[rid]
		if len(role.Responsibilities) == 0 {
			return violation(TagEmptyResponsibilities, "Role %q has zero responsibilities", role.ID)
		}
	}
	return nil
}

// checkNoCriticalCycles: no cyclic dependency chain where every edge
// is critical=true.
func checkNoCriticalCycles(state *domain.OrgState) *Violation {
	cycles := graphutil.DetectCriticalCycles(state)
	if len(cycles) == 0 {
		return nil
	}
	return violation(TagCriticalCycle, "Critical dependency cycle detected: %s", joinArrow(cycles[0]))
}

func joinArrow(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
