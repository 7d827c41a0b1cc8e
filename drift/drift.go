// Package drift implements read-only comparison between two OrgState
// snapshots — typically a log-rebuilt state and a claimed runtime
// snapshot at the same sequence. A DriftReport is a diagnostic, never
// a canonical artifact: it is not hashed and never re-enters the
// kernel.
package drift

import (
	"sort"

	"github.com/orgforge/orgkernel/canon"
	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/graphutil"
)

// DriftReport is a structured, all-integer comparison between two
// OrgState values, "a" and "b".
type DriftReport struct {
	HashA   string `json:"hash_a"`
	HashB   string `json:"hash_b"`
	HashEqual bool `json:"hash_equal"`

	RoleCountA     int64 `json:"role_count_a"`
	RoleCountB     int64 `json:"role_count_b"`
	RoleCountDelta int64 `json:"role_count_delta"`

	ActiveRoleA     int64 `json:"active_role_a"`
	ActiveRoleB     int64 `json:"active_role_b"`
	ActiveRoleDelta int64 `json:"active_role_delta"`

	StructuralDebtA     int64 `json:"structural_debt_a"`
	StructuralDebtB     int64 `json:"structural_debt_b"`
	StructuralDebtDelta int64 `json:"structural_debt_delta"`

	StructuralDensityA     int64 `json:"structural_density_a"`
	StructuralDensityB     int64 `json:"structural_density_b"`
	StructuralDensityDelta int64 `json:"structural_density_delta"`

	AddedRoles      []string `json:"added_roles"`
	RemovedRoles    []string `json:"removed_roles"`
	ActivatedRoles  []string `json:"activated_roles"`
	DeactivatedRoles []string `json:"deactivated_roles"`

	AddedDependencies   []string `json:"added_dependencies"`
	RemovedDependencies []string `json:"removed_dependencies"`
}

// Compare produces a DriftReport describing how b differs from a.
func Compare(a, b *domain.OrgState) DriftReport {
	idsA := a.SortedRoleIDs()
	idsB := b.SortedRoleIDs()
	setA := toSet(idsA)
	setB := toSet(idsB)

	var added, removed, activated, deactivated []string
	for _, id := range idsB {
		if _, ok := setA[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range idsA {
		if _, ok := setB[id]; !ok {
			removed = append(removed, id)
		}
	}
	for _, id := range idsA {
		if _, ok := setB[id]; !ok {
			continue
		}
		wasActive := a.Roles[id].Active
		isActive := b.Roles[id].Active
		if !wasActive && isActive {
			activated = append(activated, id)
		} else if wasActive && !isActive {
			deactivated = append(deactivated, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(activated)
	sort.Strings(deactivated)

	addedDeps, removedDeps := diffDependencies(a.Dependencies, b.Dependencies)

	activeA := countActive(a)
	activeB := countActive(b)

	densityA := graphutil.ComputeStructuralDensity(a)
	densityB := graphutil.ComputeStructuralDensity(b)

	hashA := canon.Hash(a)
	hashB := canon.Hash(b)

	return DriftReport{
		HashA:     hashA,
		HashB:     hashB,
		HashEqual: hashA == hashB,

		RoleCountA:     int64(len(a.Roles)),
		RoleCountB:     int64(len(b.Roles)),
		RoleCountDelta: int64(len(b.Roles)) - int64(len(a.Roles)),

		ActiveRoleA:     activeA,
		ActiveRoleB:     activeB,
		ActiveRoleDelta: activeB - activeA,

		StructuralDebtA:     a.StructuralDebt,
		StructuralDebtB:     b.StructuralDebt,
		StructuralDebtDelta: b.StructuralDebt - a.StructuralDebt,

		StructuralDensityA:     densityA,
		StructuralDensityB:     densityB,
		StructuralDensityDelta: densityB - densityA,

		AddedRoles:       emptyIfNil(added),
		RemovedRoles:     emptyIfNil(removed),
		ActivatedRoles:   emptyIfNil(activated),
		DeactivatedRoles: emptyIfNil(deactivated),

		AddedDependencies:   emptyIfNil(addedDeps),
		RemovedDependencies: emptyIfNil(removedDeps),
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func countActive(state *domain.OrgState) int64 {
	var n int64
	for _, r := range state.Roles {
		if r.Active {
			n++
		}
	}
	return n
}

// depKey renders a dependency edge as a single comparable string.
func depKey(d domain.DependencyEdge) string {
	return d.FromRoleID + "\x00" + d.ToRoleID + "\x00" + d.DependencyType
}

func diffDependencies(a, b []domain.DependencyEdge) (added, removed []string) {
	setA := make(map[string]struct{}, len(a))
	for _, d := range a {
		setA[depKey(d)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, d := range b {
		setB[depKey(d)] = struct{}{}
	}
	for k := range setB {
		if _, ok := setA[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range setA {
		if _, ok := setB[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
