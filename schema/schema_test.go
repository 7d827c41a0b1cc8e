package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrgStateAcceptsFreshState(t *testing.T) {
	state := domain.NewOrgState("", nil, nil)
	state.Dependencies = []domain.DependencyEdge{}
	state.EventHistory = []map[string]any{}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, schema.ValidateOrgState(data))
}

func TestValidateOrgStateRejectsMissingField(t *testing.T) {
	err := schema.ValidateOrgState([]byte(`{"roles":{}}`))
	assert.Error(t, err)
}

func TestValidateOrgStateRejectsUnknownField(t *testing.T) {
	data := []byte(`{
		"roles": {}, "dependencies": [], "constraint_vector": {"capital":0,"talent":0,"time":0,"political_cost":0},
		"constants": {"differentiation_threshold":3,"differentiation_min_capacity":60000,"compression_max_combined_responsibilities":5,"shock_deactivation_threshold":8,"shock_debt_base_multiplier":1,"suppressed_differentiation_debt_increment":1},
		"scale_stage": "seed", "structural_debt": 0, "event_history": [], "unexpected_field": true
	}`)
	assert.Error(t, schema.ValidateOrgState(data))
}

func TestValidateOrgStateRejectsBadEnum(t *testing.T) {
	data := []byte(`{
		"roles": {"a": {"id":"a","name":"A","purpose":"p","responsibilities":[],"required_inputs":[],"produced_outputs":[],"scale_stage":"not_a_stage","active":true}},
		"dependencies": [], "constraint_vector": {"capital":0,"talent":0,"time":0,"political_cost":0},
		"constants": {"differentiation_threshold":3,"differentiation_min_capacity":60000,"compression_max_combined_responsibilities":5,"shock_deactivation_threshold":8,"shock_debt_base_multiplier":1,"suppressed_differentiation_debt_increment":1},
		"scale_stage": "seed", "structural_debt": 0, "event_history": []
	}`)
	assert.Error(t, schema.ValidateOrgState(data))
}
