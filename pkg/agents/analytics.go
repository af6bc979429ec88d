package agents

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/carebridge/carebridge/pkg/bus"
)

// alertSteps are the steps whose failure pages someone.
var alertSteps = map[string]bool{
	"shelter_matching":     true,
	"transport_scheduling": true,
}

// AnalyticsAgent is a passive subscriber to workflow updates. It never
// sees PII: case ids are hashed before logging or counting.
type AnalyticsAgent struct {
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int
}

// NewAnalyticsAgent creates the analytics agent.
func NewAnalyticsAgent() *AnalyticsAgent {
	return &AnalyticsAgent{
		logger: slog.With("agent", Analytics),
		counts: make(map[string]int),
	}
}

// Attach subscribes the agent to the registry's update fan-out.
func (a *AnalyticsAgent) Attach(reg *bus.Registry) {
	reg.Subscribe(a.HandleUpdate)
}

// HandleUpdate consumes one workflow update.
func (a *AnalyticsAgent) HandleUpdate(update bus.WorkflowUpdate) {
	hashed := hashCaseID(update.CaseID)
	key := update.Step + ":" + update.Status

	a.mu.Lock()
	a.counts[key]++
	a.mu.Unlock()

	if update.Status == "failed" && alertSteps[update.Step] {
		a.logger.Warn("Workflow step failure alert",
			"case_hash", hashed, "step", update.Step, "sender", update.Sender)
		return
	}
	a.logger.Info("Workflow update",
		"case_hash", hashed, "step", update.Step, "status", update.Status, "sender", update.Sender)
}

// Snapshot returns a copy of the step:status counters.
func (a *AnalyticsAgent) Snapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// hashCaseID returns a short stable digest of the case id.
func hashCaseID(caseID string) string {
	sum := sha256.Sum256([]byte(caseID))
	return hex.EncodeToString(sum[:])[:12]
}
