// Package domain defines the kernel's data model: pure data, no
// behaviour, no transition logic. All numeric fields are int64
// fixed-point values (real * arithmetic.Scale).
package domain

import (
	"sort"

	"github.com/orgforge/orgkernel/arithmetic"
)

// KernelVersion is the frozen kernel identity embedded as the first
// field of every canonical serialization.
const KernelVersion = 1

// Scale stage values accepted for Role.ScaleStage and OrgState.ScaleStage.
const (
	ScaleStageSeed       = "seed"
	ScaleStageGrowth     = "growth"
	ScaleStageStructured = "structured"
	ScaleStageMature     = "mature"
)

// Dependency type values accepted for DependencyEdge.DependencyType.
const (
	DependencyOperational  = "operational"
	DependencyInformational = "informational"
	DependencyGovernance    = "governance"
)

// Role is a single organizational role — the causal unit of structure.
type Role struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Purpose           string   `json:"purpose"`
	Responsibilities  []string `json:"responsibilities"`
	RequiredInputs    []string `json:"required_inputs"`
	ProducedOutputs   []string `json:"produced_outputs"`
	ScaleStage        string   `json:"scale_stage"`
	Active            bool     `json:"active"`
}

// Clone returns a deep copy of the Role.
func (r Role) Clone() Role {
	nr := r
	nr.Responsibilities = append(make([]string, 0, len(r.Responsibilities)), r.Responsibilities...)
	nr.RequiredInputs = append(make([]string, 0, len(r.RequiredInputs)), r.RequiredInputs...)
	nr.ProducedOutputs = append(make([]string, 0, len(r.ProducedOutputs)), r.ProducedOutputs...)
	return nr
}

// DependencyEdge is a directed dependency between two roles.
type DependencyEdge struct {
	FromRoleID     string `json:"from_role_id"`
	ToRoleID       string `json:"to_role_id"`
	DependencyType string `json:"dependency_type"`
	Critical       bool   `json:"critical"`
}

// ConstraintVector holds resource constraints, each an int64
// fixed-point value (real * arithmetic.Scale). Defaults to 50000
// (5.0 * Scale) for every field.
type ConstraintVector struct {
	Capital        int64 `json:"capital"`
	Talent         int64 `json:"talent"`
	Time           int64 `json:"time"`
	PoliticalCost  int64 `json:"political_cost"`
}

// DefaultConstraintVector returns the default constraint vector (50000
// in every field) used when no overrides are supplied at initialization.
func DefaultConstraintVector() ConstraintVector {
	return ConstraintVector{Capital: 50000, Talent: 50000, Time: 50000, PoliticalCost: 50000}
}

// OrganizationalCapacityIndex returns the aggregate capacity index:
// (capital + talent + time + political_cost) / 4, integer division.
func (cv ConstraintVector) OrganizationalCapacityIndex() int64 {
	total := arithmetic.CheckedAdd(
		arithmetic.CheckedAdd(cv.Capital, cv.Talent),
		arithmetic.CheckedAdd(cv.Time, cv.PoliticalCost),
	)
	return total / 4
}

// DomainConstants holds all domain thresholds, injected via the
// initialize_constants event.
type DomainConstants struct {
	DifferentiationThreshold               int64 `json:"differentiation_threshold"`
	DifferentiationMinCapacity             int64 `json:"differentiation_min_capacity"`
	CompressionMaxCombinedResponsibilities int64 `json:"compression_max_combined_responsibilities"`
	ShockDeactivationThreshold              int64 `json:"shock_deactivation_threshold"`
	ShockDebtBaseMultiplier                 int64 `json:"shock_debt_base_multiplier"`
	SuppressedDifferentiationDebtIncrement   int64 `json:"suppressed_differentiation_debt_increment"`
}

// DefaultDomainConstants returns the standard threshold set used when
// an initialize_constants event omits a field.
func DefaultDomainConstants() DomainConstants {
	return DomainConstants{
		DifferentiationThreshold:               3,
		DifferentiationMinCapacity:             60000,
		CompressionMaxCombinedResponsibilities: 5,
		ShockDeactivationThreshold:              8,
		ShockDebtBaseMultiplier:                 1,
		SuppressedDifferentiationDebtIncrement:   1,
	}
}

// TransitionResult is the structured, immutable outcome of a single
// kernel transition.
type TransitionResult struct {
	EventType                  string `json:"event_type"`
	Success                    bool   `json:"success"`
	DifferentiationExecuted    bool   `json:"differentiation_executed"`
	SuppressedDifferentiation  bool   `json:"suppressed_differentiation"`
	DifferentiationSkipped     bool   `json:"differentiation_skipped"`
	CompressionExecuted        bool   `json:"compression_executed"`
	Deactivated                bool   `json:"deactivated"`
	Reason                     string `json:"reason"`
	PrimaryDebt                int64  `json:"primary_debt"`
	SecondaryDebt              int64  `json:"secondary_debt"`
	TargetDensity              int64  `json:"target_density"`
	ShockTarget                string `json:"shock_target"`
	Magnitude                  int64  `json:"magnitude"`
}

// DefaultTransitionResult returns the zero-state transition result:
// success with no side effects, used as the handler's starting point.
func DefaultTransitionResult(eventType string) TransitionResult {
	return TransitionResult{EventType: eventType, Success: true}
}

// OrgState is the complete organizational state snapshot.
//
// Roles is keyed by role ID; callers that need deterministic
// iteration order (canonical serialization, invariant checks, graph
// traversal) must use SortedRoleIDs rather than ranging over the map
// directly, since Go map iteration order is randomized.
type OrgState struct {
	Roles            map[string]Role  `json:"roles"`
	Dependencies     []DependencyEdge `json:"dependencies"`
	ConstraintVector ConstraintVector `json:"constraint_vector"`
	Constants        DomainConstants  `json:"constants"`
	ScaleStage       string           `json:"scale_stage"`
	StructuralDebt   int64            `json:"structural_debt"`

	// EventHistory is a non-canonical audit trail: never read by
	// canon, never part of the wire codec. Each entry is a map holding
	// the event type under "event_type" and a copy of the event payload
	// under "payload"; that copy keeps a caller-supplied "timestamp"
	// key when the payload has one.
	EventHistory []map[string]any `json:"event_history"`
}

// NewOrgState builds a fresh, empty OrgState. scaleStage defaults to
// ScaleStageSeed when empty; constraints defaults to
// DefaultConstraintVector when nil; constants defaults to
// DefaultDomainConstants when nil.
func NewOrgState(scaleStage string, constraints *ConstraintVector, constants *DomainConstants) *OrgState {
	if scaleStage == "" {
		scaleStage = ScaleStageSeed
	}
	cv := DefaultConstraintVector()
	if constraints != nil {
		cv = *constraints
	}
	dc := DefaultDomainConstants()
	if constants != nil {
		dc = *constants
	}
	return &OrgState{
		Roles:            make(map[string]Role),
		Dependencies:     nil,
		ConstraintVector: cv,
		Constants:        dc,
		ScaleStage:       scaleStage,
		StructuralDebt:   0,
		EventHistory:     nil,
	}
}

// Clone returns a deep copy of the state. The kernel clones state
// first and mutates only the clone, so handlers never observe a
// partially-mutated original on error.
func (s *OrgState) Clone() *OrgState {
	ns := &OrgState{
		Roles:            make(map[string]Role, len(s.Roles)),
		Dependencies:     append([]DependencyEdge(nil), s.Dependencies...),
		ConstraintVector: s.ConstraintVector,
		Constants:        s.Constants,
		ScaleStage:       s.ScaleStage,
		StructuralDebt:   s.StructuralDebt,
		EventHistory:     append([]map[string]any(nil), s.EventHistory...),
	}
	for id, r := range s.Roles {
		ns.Roles[id] = r.Clone()
	}
	return ns
}

// SortedRoleIDs returns the role IDs in ascending UTF-8 byte order,
// the order required for deterministic canonical serialization and
// graph traversal.
func (s *OrgState) SortedRoleIDs() []string {
	ids := make([]string, 0, len(s.Roles))
	for id := range s.Roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
