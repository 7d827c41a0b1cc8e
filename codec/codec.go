// Package codec is the deterministic wire format for persisted
// events: a CBOR rendering of the event envelope that mirrors the
// field numbering of a hand-written protobuf schema, using
// canonical CBOR encoding so two equivalent envelopes always
// produce identical bytes.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/kernel"
)

// ErrUnknownEventKind is returned when an envelope's event type has
// no wire representation.
var ErrUnknownEventKind = errors.New("codec: unknown event kind")

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Role is the wire form of domain.Role. Field numbers are fixed;
// new fields require a kernel version bump.
type Role struct {
	ID               string   `cbor:"1,keyasint"`
	Name             string   `cbor:"2,keyasint"`
	Purpose          string   `cbor:"3,keyasint"`
	Responsibilities []string `cbor:"4,keyasint"`
	RequiredInputs   []string `cbor:"5,keyasint"`
	ProducedOutputs  []string `cbor:"6,keyasint"`
	ScaleStage       string   `cbor:"7,keyasint"`
	Active           bool     `cbor:"8,keyasint"`
}

// DependencyEdge is the wire form of domain.DependencyEdge.
type DependencyEdge struct {
	FromRoleID     string `cbor:"1,keyasint"`
	ToRoleID       string `cbor:"2,keyasint"`
	DependencyType string `cbor:"3,keyasint"`
	Critical       bool   `cbor:"4,keyasint"`
}

// ConstraintVector is the wire form of domain.ConstraintVector.
type ConstraintVector struct {
	Capital       int64 `cbor:"1,keyasint"`
	Talent        int64 `cbor:"2,keyasint"`
	Time          int64 `cbor:"3,keyasint"`
	PoliticalCost int64 `cbor:"4,keyasint"`
}

// DomainConstants is the wire form of domain.DomainConstants.
type DomainConstants struct {
	DifferentiationThreshold               uint32 `cbor:"1,keyasint"`
	DifferentiationMinCapacity             int64  `cbor:"2,keyasint"`
	CompressionMaxCombinedResponsibilities uint32 `cbor:"3,keyasint"`
	ShockDeactivationThreshold             uint32 `cbor:"4,keyasint"`
	ShockDebtBaseMultiplier                uint32 `cbor:"5,keyasint"`
	SuppressedDifferentiationDebtIncrement uint32 `cbor:"6,keyasint"`
}

// event-kind payload wire types, one per event, each with its own
// fixed tag numbering.

type initializeConstants struct {
	Constants *DomainConstants `cbor:"1,keyasint"`
}

type addRole struct {
	Role *Role `cbor:"1,keyasint"`
}

type removeRole struct {
	RoleID string `cbor:"1,keyasint"`
}

type differentiateRole struct {
	RoleID   string `cbor:"1,keyasint"`
	NewRoles []Role `cbor:"2,keyasint"`
}

type compressRoles struct {
	SourceRoleID      string `cbor:"1,keyasint"`
	TargetRoleID      string `cbor:"2,keyasint"`
	CompressedName    string `cbor:"3,keyasint"`
	CompressedPurpose string `cbor:"4,keyasint"`
}

type applyConstraintChange struct {
	CapitalDelta       int64 `cbor:"1,keyasint"`
	TalentDelta        int64 `cbor:"2,keyasint"`
	TimeDelta          int64 `cbor:"3,keyasint"`
	PoliticalCostDelta int64 `cbor:"4,keyasint"`
}

type injectShock struct {
	TargetRoleID string `cbor:"1,keyasint"`
	Magnitude    uint32 `cbor:"2,keyasint"`
}

// event is the oneof container: exactly one field is populated.
type event struct {
	AddRole               *addRole                `cbor:"1,keyasint,omitempty"`
	RemoveRole            *removeRole             `cbor:"2,keyasint,omitempty"`
	DifferentiateRole     *differentiateRole      `cbor:"3,keyasint,omitempty"`
	CompressRoles         *compressRoles          `cbor:"4,keyasint,omitempty"`
	ApplyConstraintChange *applyConstraintChange  `cbor:"5,keyasint,omitempty"`
	InjectShock           *injectShock            `cbor:"6,keyasint,omitempty"`
	InitializeConstants   *initializeConstants    `cbor:"7,keyasint,omitempty"`
}

// Envelope is the wire form of engine.EventEnvelope.
type Envelope struct {
	Sequence    uint64 `cbor:"1,keyasint"`
	LogicalTime uint64 `cbor:"2,keyasint"`
	Event       *event `cbor:"3,keyasint"`
}

// Encode renders an engine.EventEnvelope to canonical CBOR bytes.
func Encode(env engine.EventEnvelope) ([]byte, error) {
	wireEvent, err := toWireEvent(env.EventType, env.Payload)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(Envelope{
		Sequence:    env.Sequence,
		LogicalTime: env.LogicalTime,
		Event:       wireEvent,
	})
}

// Decode parses canonical CBOR bytes back into an engine.EventEnvelope
// with SchemaVersion set to engine.SchemaVersion (the wire format
// carries no schema version of its own; it is pinned by the codec
// package version instead).
func Decode(data []byte) (engine.EventEnvelope, error) {
	var wire Envelope
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return engine.EventEnvelope{}, fmt.Errorf("codec: decode envelope: %w", err)
	}
	if wire.Event == nil {
		return engine.EventEnvelope{}, fmt.Errorf("codec: envelope has no event")
	}
	eventType, payload, err := fromWireEvent(wire.Event)
	if err != nil {
		return engine.EventEnvelope{}, err
	}
	return engine.EventEnvelope{
		EventType:     eventType,
		Sequence:      wire.Sequence,
		LogicalTime:   wire.LogicalTime,
		SchemaVersion: engine.SchemaVersion,
		Payload:       payload,
	}, nil
}

func toWireEvent(eventType string, payload map[string]any) (*event, error) {
	switch eventType {
	case kernel.EventInitializeConstants:
		return &event{InitializeConstants: &initializeConstants{Constants: toWireConstants(payload)}}, nil
	case kernel.EventAddRole:
		return &event{AddRole: &addRole{Role: toWireRole(payload)}}, nil
	case kernel.EventRemoveRole:
		return &event{RemoveRole: &removeRole{RoleID: strField(payload, "role_id")}}, nil
	case kernel.EventDifferentiateRole:
		return &event{DifferentiateRole: &differentiateRole{
			RoleID:   strField(payload, "role_id"),
			NewRoles: toWireRoleList(payload["new_roles"]),
		}}, nil
	case kernel.EventCompressRoles:
		return &event{CompressRoles: &compressRoles{
			SourceRoleID:      strField(payload, "source_role_id"),
			TargetRoleID:      strField(payload, "target_role_id"),
			CompressedName:    strField(payload, "compressed_name"),
			CompressedPurpose: strField(payload, "compressed_purpose"),
		}}, nil
	case kernel.EventApplyConstraintChange:
		return &event{ApplyConstraintChange: &applyConstraintChange{
			CapitalDelta:       int64Field(payload, "capital_delta"),
			TalentDelta:        int64Field(payload, "talent_delta"),
			TimeDelta:          int64Field(payload, "time_delta"),
			PoliticalCostDelta: int64Field(payload, "political_cost_delta"),
		}}, nil
	case kernel.EventInjectShock:
		return &event{InjectShock: &injectShock{
			TargetRoleID: strField(payload, "target_role_id"),
			Magnitude:    uint32(int64Field(payload, "magnitude")),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, eventType)
	}
}

func fromWireEvent(ev *event) (string, map[string]any, error) {
	switch {
	case ev.InitializeConstants != nil:
		c := ev.InitializeConstants.Constants
		if c == nil {
			c = &DomainConstants{}
		}
		return kernel.EventInitializeConstants, map[string]any{
			"differentiation_threshold":                 int64(c.DifferentiationThreshold),
			"differentiation_min_capacity":               c.DifferentiationMinCapacity,
			"compression_max_combined_responsibilities":  int64(c.CompressionMaxCombinedResponsibilities),
			"shock_deactivation_threshold":                int64(c.ShockDeactivationThreshold),
			"shock_debt_base_multiplier":                  int64(c.ShockDebtBaseMultiplier),
			"suppressed_differentiation_debt_increment":   int64(c.SuppressedDifferentiationDebtIncrement),
		}, nil
	case ev.AddRole != nil:
		return kernel.EventAddRole, roleToPayload(ev.AddRole.Role), nil
	case ev.RemoveRole != nil:
		return kernel.EventRemoveRole, map[string]any{"role_id": ev.RemoveRole.RoleID}, nil
	case ev.DifferentiateRole != nil:
		newRoles := make([]any, len(ev.DifferentiateRole.NewRoles))
		for i, r := range ev.DifferentiateRole.NewRoles {
			newRoles[i] = roleToPayload(&r)
		}
		return kernel.EventDifferentiateRole, map[string]any{
			"role_id":   ev.DifferentiateRole.RoleID,
			"new_roles": newRoles,
		}, nil
	case ev.CompressRoles != nil:
		c := ev.CompressRoles
		return kernel.EventCompressRoles, map[string]any{
			"source_role_id":     c.SourceRoleID,
			"target_role_id":     c.TargetRoleID,
			"compressed_name":    c.CompressedName,
			"compressed_purpose": c.CompressedPurpose,
		}, nil
	case ev.ApplyConstraintChange != nil:
		c := ev.ApplyConstraintChange
		return kernel.EventApplyConstraintChange, map[string]any{
			"capital_delta":        c.CapitalDelta,
			"talent_delta":         c.TalentDelta,
			"time_delta":           c.TimeDelta,
			"political_cost_delta": c.PoliticalCostDelta,
		}, nil
	case ev.InjectShock != nil:
		return kernel.EventInjectShock, map[string]any{
			"target_role_id": ev.InjectShock.TargetRoleID,
			"magnitude":      int64(ev.InjectShock.Magnitude),
		}, nil
	default:
		return "", nil, fmt.Errorf("%w: empty event", ErrUnknownEventKind)
	}
}

func toWireRole(payload map[string]any) *Role {
	scaleStage := strField(payload, "scale_stage")
	if scaleStage == "" {
		scaleStage = "seed"
	}
	active := true
	if v, ok := payload["active"].(bool); ok {
		active = v
	}
	return &Role{
		ID:               strField(payload, "id"),
		Name:             strField(payload, "name"),
		Purpose:          strField(payload, "purpose"),
		Responsibilities: strArrayField(payload, "responsibilities"),
		RequiredInputs:   strArrayField(payload, "required_inputs"),
		ProducedOutputs:  strArrayField(payload, "produced_outputs"),
		ScaleStage:       scaleStage,
		Active:           active,
	}
}

func toWireRoleList(v any) []Role {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Role, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, *toWireRole(m))
	}
	return out
}

func roleToPayload(r *Role) map[string]any {
	if r == nil {
		r = &Role{}
	}
	return map[string]any{
		"id":               r.ID,
		"name":             r.Name,
		"purpose":          r.Purpose,
		"responsibilities": stringsToAny(r.Responsibilities),
		"required_inputs":  stringsToAny(r.RequiredInputs),
		"produced_outputs": stringsToAny(r.ProducedOutputs),
		"scale_stage":      r.ScaleStage,
		"active":           r.Active,
	}
}

func toWireConstants(payload map[string]any) *DomainConstants {
	return &DomainConstants{
		DifferentiationThreshold:               uint32(int64Field(payload, "differentiation_threshold")),
		DifferentiationMinCapacity:             int64Field(payload, "differentiation_min_capacity"),
		CompressionMaxCombinedResponsibilities: uint32(int64Field(payload, "compression_max_combined_responsibilities")),
		ShockDeactivationThreshold:             uint32(int64Field(payload, "shock_deactivation_threshold")),
		ShockDebtBaseMultiplier:                uint32(int64Field(payload, "shock_debt_base_multiplier")),
		SuppressedDifferentiationDebtIncrement:  uint32(int64Field(payload, "suppressed_differentiation_debt_increment")),
	}
}

func strField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func int64Field(payload map[string]any, key string) int64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func strArrayField(payload map[string]any, key string) []string {
	arr, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
