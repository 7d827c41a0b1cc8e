// Package kernel implements the pure, frozen transition logic of the
// organizational simulation: one handler per event type, dispatched
// from ApplyEvent. Every handler clones the prior state before
// mutating (the caller's state is never touched), and math is
// entirely integer — see package arithmetic. Handlers panic on
// malformed input (missing required payload fields, unknown roles,
// domain-rule violations); the engine layer is responsible for
// catching these and turning them into protocol-level errors where a
// caller needs a recoverable result instead of a crash.
package kernel

import (
	"fmt"
	"sort"

	"github.com/orgforge/orgkernel/arithmetic"
	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/graphutil"
)

// ApplyEvent applies event to state and returns the resulting new
// state plus a structured TransitionResult. The original state is
// never mutated: state.Clone() is taken first and only the clone is
// touched by the handler.
func ApplyEvent(state *domain.OrgState, event Event) (*domain.OrgState, domain.TransitionResult) {
	newState := state.Clone()

	var result domain.TransitionResult
	switch event.Type {
	case EventInitializeConstants:
		result = applyInitializeConstants(newState, event)
	case EventAddRole:
		result = applyAddRole(newState, event)
	case EventRemoveRole:
		result = applyRemoveRole(newState, event)
	case EventDifferentiateRole:
		result = applyDifferentiateRole(newState, event)
	case EventCompressRoles:
		result = applyCompressRoles(newState, event)
	case EventApplyConstraintChange:
		result = applyConstraintChange(newState, event)
	case EventInjectShock:
		result = applyInjectShock(newState, event, state)
	default:
		panic("Unknown event type: " + event.Type)
	}

	entry := make(map[string]any, len(event.Payload)+1)
	for k, v := range event.Payload {
		entry[k] = v
	}
	newState.EventHistory = append(newState.EventHistory, map[string]any{
		"event_type": event.Type,
		"payload":    entry,
	})

	return newState, result
}

func applyInitializeConstants(state *domain.OrgState, event Event) domain.TransitionResult {
	old := state.Constants
	c := domain.DomainConstants{
		DifferentiationThreshold:               old.DifferentiationThreshold,
		DifferentiationMinCapacity:             old.DifferentiationMinCapacity,
		CompressionMaxCombinedResponsibilities: old.CompressionMaxCombinedResponsibilities,
		ShockDeactivationThreshold:              old.ShockDeactivationThreshold,
		ShockDebtBaseMultiplier:                 old.ShockDebtBaseMultiplier,
		SuppressedDifferentiationDebtIncrement:   old.SuppressedDifferentiationDebtIncrement,
	}
	if v, ok := event.int64("differentiation_threshold"); ok {
		c.DifferentiationThreshold = v
	}
	if v, ok := event.int64("differentiation_min_capacity"); ok {
		c.DifferentiationMinCapacity = v
	}
	if v, ok := event.int64("compression_max_combined_responsibilities"); ok {
		c.CompressionMaxCombinedResponsibilities = v
	}
	if v, ok := event.int64("shock_deactivation_threshold"); ok {
		c.ShockDeactivationThreshold = v
	}
	if v, ok := event.int64("shock_debt_base_multiplier"); ok {
		c.ShockDebtBaseMultiplier = v
	}
	if v, ok := event.int64("suppressed_differentiation_debt_increment"); ok {
		c.SuppressedDifferentiationDebtIncrement = v
	}
	state.Constants = c

	return domain.DefaultTransitionResult(EventInitializeConstants)
}

func applyAddRole(state *domain.OrgState, event Event) domain.TransitionResult {
	roleID := event.mustStr("id", "add_role")
	arithmetic.ValidateRoleID(roleID)

	if _, exists := state.Roles[roleID]; exists {
		panic(fmt.Sprintf("Role ID collision: %q already exists", roleID))
	}

	responsibilities := event.strArray("responsibilities")
	sort.Strings(responsibilities)
	requiredInputs := event.strArray("required_inputs")
	sort.Strings(requiredInputs)
	producedOutputs := event.strArray("produced_outputs")
	sort.Strings(producedOutputs)

	scaleStage := state.ScaleStage
	if v, ok := event.str("scale_stage"); ok {
		scaleStage = v
	}

	state.Roles[roleID] = domain.Role{
		ID:               roleID,
		Name:             event.mustStr("name", "add_role"),
		Purpose:          event.mustStr("purpose", "add_role"),
		Responsibilities: responsibilities,
		RequiredInputs:   requiredInputs,
		ProducedOutputs:  producedOutputs,
		ScaleStage:       scaleStage,
		Active:           true,
	}

	return domain.DefaultTransitionResult(EventAddRole)
}

func applyRemoveRole(state *domain.OrgState, event Event) domain.TransitionResult {
	roleID := event.mustStr("role_id", "remove_role")
	if _, exists := state.Roles[roleID]; !exists {
		panic(fmt.Sprintf("Role %q does not exist", roleID))
	}

	delete(state.Roles, roleID)

	kept := state.Dependencies[:0:0]
	for _, d := range state.Dependencies {
		if d.FromRoleID != roleID && d.ToRoleID != roleID {
			kept = append(kept, d)
		}
	}
	state.Dependencies = kept

	return domain.DefaultTransitionResult(EventRemoveRole)
}

func applyDifferentiateRole(state *domain.OrgState, event Event) domain.TransitionResult {
	roleID := event.mustStr("role_id", "differentiate_role")
	role, exists := state.Roles[roleID]
	if !exists {
		panic(fmt.Sprintf("Role %q does not exist", roleID))
	}
	role = role.Clone()

	c := state.Constants

	if int64(len(role.Responsibilities)) <= c.DifferentiationThreshold {
		result := domain.DefaultTransitionResult(EventDifferentiateRole)
		result.DifferentiationSkipped = true
		result.Reason = fmt.Sprintf("responsibilities=%d <= differentiation_threshold=%d",
			len(role.Responsibilities), c.DifferentiationThreshold)
		return result
	}

	capacity := state.ConstraintVector.OrganizationalCapacityIndex()
	if capacity < c.DifferentiationMinCapacity {
		state.StructuralDebt = arithmetic.CheckedAdd(state.StructuralDebt, c.SuppressedDifferentiationDebtIncrement)
		result := domain.DefaultTransitionResult(EventDifferentiateRole)
		result.SuppressedDifferentiation = true
		result.Reason = fmt.Sprintf("capacity=%d < differentiation_min_capacity=%d", capacity, c.DifferentiationMinCapacity)
		return result
	}

	newRolesData, ok := event.array("new_roles")
	if !ok || len(newRolesData) == 0 {
		panic("differentiate_role event must provide 'new_roles' in payload")
	}

	delete(state.Roles, roleID)

	for _, item := range newRolesData {
		nr, ok := item.(map[string]any)
		if !ok {
			panic("differentiate_role: new_roles entries must be objects")
		}

		subID, ok := mapStr(nr, "id")
		if !ok {
			panic("new_role: missing 'id'")
		}
		arithmetic.ValidateRoleID(subID)

		responsibilities := mapStrArray(nr, "responsibilities")
		sort.Strings(responsibilities)

		var requiredInputs []string
		if v, ok := mapGet(nr, "required_inputs"); ok {
			if _, isArr := v.([]any); isArr {
				requiredInputs = mapStrArray(nr, "required_inputs")
			} else {
				requiredInputs = append([]string(nil), role.RequiredInputs...)
			}
		} else {
			requiredInputs = append([]string(nil), role.RequiredInputs...)
		}
		sort.Strings(requiredInputs)

		producedOutputs := mapStrArray(nr, "produced_outputs")
		sort.Strings(producedOutputs)

		name, ok := mapStr(nr, "name")
		if !ok {
			panic("new_role: missing 'name'")
		}
		purpose, ok := mapStr(nr, "purpose")
		if !ok {
			purpose = role.Purpose
		}

		// last-wins: a later new_roles entry with a duplicate id simply
		// overwrites the one inserted before it. Well-formed fixtures
		// never rely on this.
		state.Roles[subID] = domain.Role{
			ID:               subID,
			Name:             name,
			Purpose:          purpose,
			Responsibilities: responsibilities,
			RequiredInputs:   requiredInputs,
			ProducedOutputs:  producedOutputs,
			ScaleStage:       role.ScaleStage,
			Active:           true,
		}
	}

	result := domain.DefaultTransitionResult(EventDifferentiateRole)
	result.DifferentiationExecuted = true
	return result
}

func applyCompressRoles(state *domain.OrgState, event Event) domain.TransitionResult {
	srcID := event.mustStr("source_role_id", "compress_roles")
	tgtID := event.mustStr("target_role_id", "compress_roles")

	src, ok := state.Roles[srcID]
	if !ok {
		panic(fmt.Sprintf("Source role %q does not exist", srcID))
	}
	tgt, ok := state.Roles[tgtID]
	if !ok {
		panic(fmt.Sprintf("Target role %q does not exist", tgtID))
	}

	c := state.Constants

	combined := unionSorted(tgt.Responsibilities, src.Responsibilities)
	if int64(len(combined)) > c.CompressionMaxCombinedResponsibilities {
		panic(fmt.Sprintf(
			"Compression would produce %d responsibilities, exceeding compression_max_combined_responsibilities=%d",
			len(combined), c.CompressionMaxCombinedResponsibilities))
	}

	name := tgt.Name
	if v, ok := event.str("compressed_name"); ok {
		name = v
	}
	purpose := tgt.Purpose
	if v, ok := event.str("compressed_purpose"); ok {
		purpose = v
	}

	tgt.Name = name
	tgt.Purpose = purpose
	tgt.Responsibilities = combined
	tgt.RequiredInputs = unionSorted(tgt.RequiredInputs, src.RequiredInputs)
	tgt.ProducedOutputs = unionSorted(tgt.ProducedOutputs, src.ProducedOutputs)
	state.Roles[tgtID] = tgt

	delete(state.Roles, srcID)

	for i := range state.Dependencies {
		if state.Dependencies[i].FromRoleID == srcID {
			state.Dependencies[i].FromRoleID = tgtID
		}
		if state.Dependencies[i].ToRoleID == srcID {
			state.Dependencies[i].ToRoleID = tgtID
		}
	}

	kept := state.Dependencies[:0:0]
	for _, d := range state.Dependencies {
		if d.FromRoleID != d.ToRoleID {
			kept = append(kept, d)
		}
	}
	state.Dependencies = kept

	result := domain.DefaultTransitionResult(EventCompressRoles)
	result.CompressionExecuted = true
	return result
}

// unionSorted returns the sorted, deduplicated union of a and b.
func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func applyConstraintChange(state *domain.OrgState, event Event) domain.TransitionResult {
	cv := &state.ConstraintVector
	cv.Capital = arithmetic.CheckedAdd(cv.Capital, event.jsonInt64("capital_delta"))
	cv.Talent = arithmetic.CheckedAdd(cv.Talent, event.jsonInt64("talent_delta"))
	cv.Time = arithmetic.CheckedAdd(cv.Time, event.jsonInt64("time_delta"))
	cv.PoliticalCost = arithmetic.CheckedAdd(cv.PoliticalCost, event.jsonInt64("political_cost_delta"))

	if cv.Capital < 0 || cv.Talent < 0 || cv.Time < 0 || cv.PoliticalCost < 0 {
		panic("Negative constraint overflow detected")
	}

	return domain.DefaultTransitionResult(EventApplyConstraintChange)
}

func applyInjectShock(state *domain.OrgState, event Event, originalState *domain.OrgState) domain.TransitionResult {
	targetID := event.mustStr("target_role_id", "inject_shock")
	magnitude, ok := event.int64("magnitude")
	if !ok {
		panic("inject_shock: missing 'magnitude'")
	}

	if _, exists := state.Roles[targetID]; !exists {
		panic(fmt.Sprintf("Role %q does not exist", targetID))
	}

	c := state.Constants

	targetDensity := graphutil.ComputeRoleStructuralDensity(targetID, originalState)

	primaryDebt := arithmetic.CheckedMul(magnitude, arithmetic.CheckedAdd(c.ShockDebtBaseMultiplier, targetDensity))
	if primaryDebt < 1 {
		primaryDebt = 1
	}
	state.StructuralDebt = arithmetic.CheckedAdd(state.StructuralDebt, primaryDebt)

	deactivated := false
	if magnitude > c.ShockDeactivationThreshold {
		role := state.Roles[targetID]
		role.Active = false
		state.Roles[targetID] = role
		deactivated = true
	}

	connected := make(map[string]struct{})
	for _, dep := range originalState.Dependencies {
		if dep.FromRoleID == targetID {
			connected[dep.ToRoleID] = struct{}{}
		} else if dep.ToRoleID == targetID {
			connected[dep.FromRoleID] = struct{}{}
		}
	}
	connectedIDs := make([]string, 0, len(connected))
	for id := range connected {
		connectedIDs = append(connectedIDs, id)
	}
	sort.Strings(connectedIDs)

	var secondaryDebt int64
	for _, cid := range connectedIDs {
		if _, exists := state.Roles[cid]; exists {
			d := graphutil.ComputeRoleStructuralDensity(cid, originalState)
			inc := arithmetic.CheckedMul(magnitude, d)
			if inc < 1 {
				inc = 1
			}
			secondaryDebt = arithmetic.CheckedAdd(secondaryDebt, inc)
		}
	}
	state.StructuralDebt = arithmetic.CheckedAdd(state.StructuralDebt, secondaryDebt)

	result := domain.DefaultTransitionResult(EventInjectShock)
	result.Deactivated = deactivated
	result.ShockTarget = targetID
	result.Magnitude = magnitude
	result.PrimaryDebt = primaryDebt
	result.SecondaryDebt = secondaryDebt
	result.TargetDensity = targetDensity
	return result
}
