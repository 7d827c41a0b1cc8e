package canon_test

import (
	"testing"

	"github.com/orgforge/orgkernel/canon"
	"github.com/orgforge/orgkernel/domain"
	"github.com/stretchr/testify/assert"
)

func TestSerializeEmptyState(t *testing.T) {
	state := domain.NewOrgState("", nil, nil)
	got := string(canon.Serialize(state))
	want := `{"kernel_version":1,"roles":[],"dependencies":[],"constraint_vector":{"capital":50000,"talent":50000,"time":50000,"political_cost":50000},"structural_debt":0,"scale_stage":"seed"}`
	assert.Equal(t, want, got)
}

func TestSerializeIsDeterministicUnderFieldReordering(t *testing.T) {
	a := domain.NewOrgState("", nil, nil)
	a.Roles["b"] = domain.Role{ID: "b", Responsibilities: []string{"z", "a"}, Active: true}
	a.Roles["a"] = domain.Role{ID: "a", Responsibilities: []string{"x"}, Active: true}

	b := domain.NewOrgState("", nil, nil)
	b.Roles["a"] = domain.Role{ID: "a", Responsibilities: []string{"x"}, Active: true}
	b.Roles["b"] = domain.Role{ID: "b", Responsibilities: []string{"a", "z"}, Active: true}

	assert.Equal(t, canon.Hash(a), canon.Hash(b))
}

func TestHashIsSHA256Hex(t *testing.T) {
	state := domain.NewOrgState("", nil, nil)
	h := canon.Hash(state)
	assert.Len(t, h, 64)
}
