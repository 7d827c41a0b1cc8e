// Package canon implements the kernel's canonical serialization and
// SHA-256 hashing: the cross-implementation identity contract. The
// field order below is fixed and load-bearing — changing it changes
// every hash this module has ever produced.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/orgforge/orgkernel/domain"
)

// canonicalRole, canonicalDependency, canonicalConstraintVector and
// canonicalState pin the canonical field order via Go's
// struct-field-order JSON marshaling; encoding/json never reorders
// struct fields (only maps are key-sorted), so these types are the
// entire contract.
type canonicalRole struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Purpose          string   `json:"purpose"`
	Responsibilities []string `json:"responsibilities"`
	RequiredInputs   []string `json:"required_inputs"`
	ProducedOutputs  []string `json:"produced_outputs"`
	ScaleStage       string   `json:"scale_stage"`
	Active           bool     `json:"active"`
}

type canonicalDependency struct {
	FromRoleID     string `json:"from_role_id"`
	ToRoleID       string `json:"to_role_id"`
	DependencyType string `json:"dependency_type"`
	Critical       bool   `json:"critical"`
}

type canonicalConstraintVector struct {
	Capital       int64 `json:"capital"`
	Talent        int64 `json:"talent"`
	Time          int64 `json:"time"`
	PoliticalCost int64 `json:"political_cost"`
}

type canonicalState struct {
	KernelVersion    int                       `json:"kernel_version"`
	Roles            []canonicalRole           `json:"roles"`
	Dependencies     []canonicalDependency     `json:"dependencies"`
	ConstraintVector canonicalConstraintVector `json:"constraint_vector"`
	StructuralDebt   int64                     `json:"structural_debt"`
	ScaleStage       string                    `json:"scale_stage"`
}

func sortedCopy(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

func toCanonicalValue(state *domain.OrgState) canonicalState {
	roleIDs := state.SortedRoleIDs()
	roles := make([]canonicalRole, len(roleIDs))
	for i, id := range roleIDs {
		r := state.Roles[id]
		roles[i] = canonicalRole{
			ID:               r.ID,
			Name:             r.Name,
			Purpose:          r.Purpose,
			Responsibilities: sortedCopy(r.Responsibilities),
			RequiredInputs:   sortedCopy(r.RequiredInputs),
			ProducedOutputs:  sortedCopy(r.ProducedOutputs),
			ScaleStage:       r.ScaleStage,
			Active:           r.Active,
		}
	}
	if roles == nil {
		roles = []canonicalRole{}
	}

	deps := append([]domain.DependencyEdge(nil), state.Dependencies...)
	sort.Slice(deps, func(i, j int) bool {
		a, b := deps[i], deps[j]
		if a.FromRoleID != b.FromRoleID {
			return a.FromRoleID < b.FromRoleID
		}
		if a.ToRoleID != b.ToRoleID {
			return a.ToRoleID < b.ToRoleID
		}
		return a.DependencyType < b.DependencyType
	})
	depsOut := make([]canonicalDependency, len(deps))
	for i, d := range deps {
		depsOut[i] = canonicalDependency{
			FromRoleID:     d.FromRoleID,
			ToRoleID:       d.ToRoleID,
			DependencyType: d.DependencyType,
			Critical:       d.Critical,
		}
	}
	if depsOut == nil {
		depsOut = []canonicalDependency{}
	}

	return canonicalState{
		KernelVersion: domain.KernelVersion,
		Roles:         roles,
		Dependencies:  depsOut,
		ConstraintVector: canonicalConstraintVector{
			Capital:       state.ConstraintVector.Capital,
			Talent:        state.ConstraintVector.Talent,
			Time:          state.ConstraintVector.Time,
			PoliticalCost: state.ConstraintVector.PoliticalCost,
		},
		StructuralDebt: state.StructuralDebt,
		ScaleStage:     state.ScaleStage,
	}
}

// Serialize renders state as canonical, whitespace-free UTF-8 JSON in
// strict field order: kernel_version, roles, dependencies,
// constraint_vector, structural_debt, scale_stage. Roles are sorted
// by ID; each role's responsibilities/required_inputs/produced_outputs
// are sorted. Dependencies are sorted by (from_role_id, to_role_id,
// dependency_type). No floats appear anywhere in the output.
func Serialize(state *domain.OrgState) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toCanonicalValue(state)); err != nil {
		// Every field is a plain string/bool/int64/slice thereof —
		// Marshal on this shape cannot fail.
		panic("canon: unexpected marshal failure: " + err.Error())
	}
	// json.Encoder.Encode appends a trailing newline; the canonical
	// form has none.
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// Hash returns the lowercase-hex SHA-256 of Serialize(state).
func Hash(state *domain.OrgState) string {
	sum := sha256.Sum256(Serialize(state))
	return hex.EncodeToString(sum[:])
}
