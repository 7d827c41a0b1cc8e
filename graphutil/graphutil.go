// Package graphutil provides pure graph analysis over an OrgState's
// dependency edges: structural density, isolation detection, and
// critical-cycle detection. No external dependencies; every traversal
// is over sorted adjacency so results are reproducible across runs.
package graphutil

import (
	"sort"

	"github.com/orgforge/orgkernel/arithmetic"
	"github.com/orgforge/orgkernel/domain"
)

// ComputeStructuralDensity returns (edges * Scale) / maxPossibleEdges
// for a directed graph over state's roles, 0 if fewer than two roles.
func ComputeStructuralDensity(state *domain.OrgState) int64 {
	n := int64(len(state.Roles))
	if n < 2 {
		return 0
	}
	maxEdges := n * (n - 1)
	if maxEdges == 0 {
		return 0
	}
	return arithmetic.CheckedMul(int64(len(state.Dependencies)), arithmetic.Scale) / maxEdges
}

// ComputeRoleStructuralDensity returns the fraction of all dependency
// edges touching roleID, as (connectedEdges * Scale) / totalEdges. 0
// if there are no dependencies at all.
func ComputeRoleStructuralDensity(roleID string, state *domain.OrgState) int64 {
	total := int64(len(state.Dependencies))
	if total == 0 {
		return 0
	}
	var count int64
	for _, d := range state.Dependencies {
		if d.FromRoleID == roleID || d.ToRoleID == roleID {
			count++
		}
	}
	return arithmetic.CheckedMul(count, arithmetic.Scale) / total
}

// FindIsolatedRoles returns, in sorted order, the role IDs with zero
// incoming and zero outgoing dependency edges.
func FindIsolatedRoles(state *domain.OrgState) []string {
	connected := make(map[string]struct{}, len(state.Dependencies)*2)
	for _, e := range state.Dependencies {
		connected[e.FromRoleID] = struct{}{}
		connected[e.ToRoleID] = struct{}{}
	}

	isolated := make([]string, 0)
	for rid := range state.Roles {
		if _, ok := connected[rid]; !ok {
			isolated = append(isolated, rid)
		}
	}
	sort.Strings(isolated)
	return isolated
}

const (
	white = 0
	grey  = 1
	black = 2
)

// DetectCriticalCycles finds cycles among edges marked Critical, using
// iterative DFS with explicit colour tracking over sorted adjacency
// lists. Traversal starts from roles in sorted-ID order so the first
// cycle discovered is deterministic across runs — callers needing a
// stable "the" cycle should take cycles[0].
func DetectCriticalCycles(state *domain.OrgState) [][]string {
	adj := make(map[string][]string)
	for _, e := range state.Dependencies {
		if e.Critical {
			adj[e.FromRoleID] = append(adj[e.FromRoleID], e.ToRoleID)
		}
	}
	for k := range adj {
		sort.Strings(adj[k])
	}

	colour := make(map[string]int, len(state.Roles))
	for rid := range state.Roles {
		colour[rid] = white
	}

	sortedRoleIDs := state.SortedRoleIDs()

	var cycles [][]string

	type frame struct {
		node string
		idx  int
	}

	for _, start := range sortedRoleIDs {
		if colour[start] != white {
			continue
		}

		stack := []frame{{node: start, idx: 0}}
		colour[start] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbours := adj[top.node]

			if top.idx < len(neighbours) {
				nbr := neighbours[top.idx]
				top.idx++

				switch colour[nbr] {
				case grey:
					cycle := []string{nbr}
					for i := len(stack) - 1; i >= 0; i-- {
						sn := stack[i].node
						cycle = append(cycle, sn)
						if sn == nbr {
							break
						}
					}
					cycles = append(cycles, cycle)
				case white:
					colour[nbr] = grey
					stack = append(stack, frame{node: nbr, idx: 0})
				}
			} else {
				colour[top.node] = black
				stack = stack[:len(stack)-1]
			}
		}
	}

	return cycles
}
