package graphutil_test

import (
	"testing"

	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/graphutil"
	"github.com/stretchr/testify/assert"
)

func newState(roleIDs []string, deps []domain.DependencyEdge) *domain.OrgState {
	s := domain.NewOrgState("", nil, nil)
	for _, id := range roleIDs {
		s.Roles[id] = domain.Role{ID: id}
	}
	s.Dependencies = deps
	return s
}

func TestComputeStructuralDensityFewerThanTwoRoles(t *testing.T) {
	s := newState([]string{"a"}, nil)
	assert.Zero(t, graphutil.ComputeStructuralDensity(s))
}

func TestComputeStructuralDensity(t *testing.T) {
	s := newState([]string{"a", "b"}, []domain.DependencyEdge{
		{FromRoleID: "a", ToRoleID: "b"},
	})
	// max_edges = 2*1 = 2; density = (1*10000)/2 = 5000
	assert.EqualValues(t, 5000, graphutil.ComputeStructuralDensity(s))
}

func TestFindIsolatedRoles(t *testing.T) {
	s := newState([]string{"a", "b", "c"}, []domain.DependencyEdge{
		{FromRoleID: "a", ToRoleID: "b"},
	})
	assert.Equal(t, []string{"c"}, graphutil.FindIsolatedRoles(s))
}

func TestDetectCriticalCyclesNoCycle(t *testing.T) {
	s := newState([]string{"a", "b"}, []domain.DependencyEdge{
		{FromRoleID: "a", ToRoleID: "b", Critical: true},
	})
	assert.Empty(t, graphutil.DetectCriticalCycles(s))
}

func TestDetectCriticalCyclesFindsCycle(t *testing.T) {
	s := newState([]string{"a", "b"}, []domain.DependencyEdge{
		{FromRoleID: "a", ToRoleID: "b", Critical: true},
		{FromRoleID: "b", ToRoleID: "a", Critical: true},
	})
	cycles := graphutil.DetectCriticalCycles(s)
	assert.NotEmpty(t, cycles)
}

func TestDetectCriticalCyclesIgnoresNonCritical(t *testing.T) {
	s := newState([]string{"a", "b"}, []domain.DependencyEdge{
		{FromRoleID: "a", ToRoleID: "b", Critical: false},
		{FromRoleID: "b", ToRoleID: "a", Critical: false},
	})
	assert.Empty(t, graphutil.DetectCriticalCycles(s))
}
