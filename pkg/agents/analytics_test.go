package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carebridge/carebridge/pkg/bus"
)

func TestAnalyticsCountsStepOutcomes(t *testing.T) {
	agent := NewAnalyticsAgent()

	agent.HandleUpdate(bus.WorkflowUpdate{CaseID: "C1", Step: "shelter_matching", Status: "completed"})
	agent.HandleUpdate(bus.WorkflowUpdate{CaseID: "C2", Step: "shelter_matching", Status: "completed"})
	agent.HandleUpdate(bus.WorkflowUpdate{CaseID: "C3", Step: "shelter_matching", Status: "failed"})
	agent.HandleUpdate(bus.WorkflowUpdate{CaseID: "C3", Step: "eligibility_check", Status: "completed"})

	counts := agent.Snapshot()
	assert.Equal(t, 2, counts["shelter_matching:completed"])
	assert.Equal(t, 1, counts["shelter_matching:failed"])
	assert.Equal(t, 1, counts["eligibility_check:completed"])
}

func TestAnalyticsHashesCaseIDs(t *testing.T) {
	first := hashCaseID("CASE-2026-001")
	second := hashCaseID("CASE-2026-001")

	assert.Equal(t, first, second)
	assert.Len(t, first, 12)
	assert.NotContains(t, first, "CASE")
}
