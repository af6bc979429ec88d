package agents

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// caseManagerRoster is the on-call roster assignments rotate over.
var caseManagerRoster = []models.CaseManagerAssignment{
	{Name: "Maria Santos", Phone: "(415) 555-0182", Department: "Adult Services"},
	{Name: "James Okafor", Phone: "(415) 555-0147", Department: "Housing Navigation"},
	{Name: "Lin Chen", Phone: "(415) 555-0193", Department: "Behavioral Health"},
	{Name: "Derrick Waters", Phone: "(415) 555-0168", Department: "Adult Services"},
}

// SocialWorkerAgent assigns a human case manager. Assignment hashes the
// case id over the roster so the same case always reaches the same
// manager, with first contact on the next business day at 10:00.
type SocialWorkerAgent struct {
	logger *slog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

// NewSocialWorkerAgent creates the social worker agent.
func NewSocialWorkerAgent() *SocialWorkerAgent {
	return &SocialWorkerAgent{
		logger: slog.With("agent", SocialWorker),
		Now:    time.Now,
	}
}

// Handle answers a bus.SocialWorkerRequest.
func (a *SocialWorkerAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.SocialWorkerRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected SocialWorkerRequest")
	}

	h := fnv.New32a()
	h.Write([]byte(req.CaseID))
	assigned := caseManagerRoster[int(h.Sum32())%len(caseManagerRoster)]
	assigned.FirstContactDate = nextBusinessDay(a.Now())

	a.logger.Info("Case manager assigned",
		"case_id", req.CaseID, "manager", assigned.Name, "department", assigned.Department,
		"first_contact", assigned.FirstContactDate)
	return assigned, nil
}

// nextBusinessDay returns the next weekday after now, at 10:00 UTC.
func nextBusinessDay(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, time.UTC)
}
