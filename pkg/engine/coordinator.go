package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carebridge/carebridge/pkg/agents"
	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/metrics"
	"github.com/carebridge/carebridge/pkg/models"
)

// resourceItems are the ancillary item classes every discharge requests.
var resourceItems = []string{"food", "hygiene", "clothing"}

// run is the per-case workflow state. One run per Coordinate call; never
// shared across cases.
type run struct {
	engine  *Engine
	ctx     context.Context
	caseID  string
	intake  *models.Intake
	kase    *models.Case
	outcome *models.Outcome
}

// Coordinate drives the full discharge workflow for one case and returns
// the outcome. It never returns an error: failures are reported inside
// the outcome, and the HTTP caller decides how to render them.
func (e *Engine) Coordinate(ctx context.Context, caseID string, intake *models.Intake) *models.Outcome {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.track(caseID, cancel)
	defer e.untrack(caseID)

	r := &run{
		engine: e,
		ctx:    runCtx,
		caseID: caseID,
		intake: intake,
		outcome: &models.Outcome{
			CaseID: caseID,
			Status: models.OutcomeCoordinated,
		},
	}

	r.persistIntake()
	r.assignSocialWorker()
	r.prepareMedications()

	best, confirmed := r.matchShelter()
	r.fanOutResourcesAndEligibility(best)
	if best != nil {
		r.scheduleTransport(best)
	}

	r.finalize(best, confirmed)

	metrics.WorkflowsTotal.WithLabelValues(string(r.outcome.Status)).Inc()
	metrics.WorkflowDuration.Observe(time.Since(start).Seconds())
	return r.outcome
}

// cancelled reports whether the run has been aborted. After cancellation
// no further timeline events are appended.
func (r *run) cancelled() bool {
	return r.ctx.Err() != nil
}

// event appends one timeline event. Append failures are logged, never
// fatal; cancelled runs append nothing.
func (r *run) event(step, agent string, status models.EventStatus, description string, details map[string]any, transcription string) {
	if r.cancelled() {
		return
	}
	// Event appends survive the run context so a cancel between steps
	// cannot half-write; cancellation is checked above instead.
	_, err := r.engine.store.AppendEvent(context.Background(), models.AppendEventRequest{
		CaseID:        r.caseID,
		Step:          step,
		Agent:         agent,
		Status:        status,
		Description:   description,
		Details:       details,
		Transcription: transcription,
	})
	if err != nil {
		r.engine.logger.Error("Timeline append failed",
			"case_id", r.caseID, "step", step, "error", err)
	}
}

// notify fans a workflow update out to bus subscribers.
func (r *run) notify(step, status string) {
	r.engine.registry.Notify(bus.WorkflowUpdate{
		CaseID: r.caseID,
		Step:   step,
		Status: status,
		Sender: agents.Coordinator,
	})
}

// call dispatches one typed request over the bus with the configured
// per-call timeout.
func (r *run) call(to string, msgType bus.MessageType, payload any) (any, error) {
	return r.engine.registry.Call(r.ctx, agents.Coordinator, to, msgType, payload,
		r.engine.cfg.Workflow.CallTimeout)
}

// stepFailed records a non-fatal step failure in the timeline and the
// update fan-out.
func (r *run) stepFailed(eventStep, notifyStep, agent string, err error) {
	metrics.StepFailures.WithLabelValues(notifyStep).Inc()
	r.event(eventStep, agent, models.EventFailed, err.Error(), nil, "")
	r.notify(notifyStep, "failed")
}

// persistIntake upserts the case row and opens the timeline. Step 1.
func (r *run) persistIntake() {
	r.kase = r.intake.ToCase(r.caseID)
	r.kase.WorkflowStatus = models.WorkflowInProgress
	r.kase.CurrentStep = "intake"
	if err := r.engine.store.UpsertCase(r.ctx, r.kase); err != nil {
		r.engine.logger.Error("Case upsert failed", "case_id", r.caseID, "error", err)
		r.outcome.Error = fmt.Sprintf("persist intake: %v", err)
	}
	r.event("initiated", agents.Coordinator, models.EventInfo,
		"Discharge coordination initiated for "+r.intake.PatientName,
		map[string]any{"facility": r.intake.Discharge.FacilityName}, "")
	r.notify("intake", "completed")
}

// assignSocialWorker records the case-manager assignment. Step 2.
func (r *run) assignSocialWorker() {
	if r.cancelled() {
		return
	}
	r.event("sw_plan_started", agents.SocialWorker, models.EventInProgress,
		"Social worker intake planning started", nil, "")

	resp, err := r.call(agents.SocialWorker, bus.MsgSocialWorker, bus.SocialWorkerRequest{
		CaseID:      r.caseID,
		PatientName: r.intake.PatientName,
		Needs:       r.intake.Clinical.Notes,
	})
	if err != nil {
		r.stepFailed("sw_plan_failed", "social_worker_planning", agents.SocialWorker, err)
		return
	}
	assignment := resp.(models.CaseManagerAssignment)
	r.outcome.CaseManager = &assignment
	r.event("sw_plan_completed", agents.SocialWorker, models.EventCompleted,
		"Case manager assigned: "+assignment.Name,
		map[string]any{"department": assignment.Department, "first_contact": assignment.FirstContactDate}, "")
	r.notify("social_worker_planning", "completed")
}

// prepareMedications runs pharmacy prep when the intake lists
// medications. Step 3.
func (r *run) prepareMedications() {
	if r.cancelled() {
		return
	}
	meds := r.intake.Clinical.Medications
	if len(meds) == 0 {
		r.event("pharmacy_skipped", agents.Pharmacy, models.EventInfo,
			"No medications on discharge record", nil, "")
		return
	}
	r.event("pharmacy_started", agents.Pharmacy, models.EventInProgress,
		fmt.Sprintf("Preparing %d medications", len(meds)), nil, "")

	resp, err := r.call(agents.Pharmacy, bus.MsgPharmacyPrepare, bus.PharmacyRequest{
		CaseID:      r.caseID,
		Medications: meds,
		Location:    r.intake.Discharge.FacilityAddress,
	})
	if err != nil {
		r.stepFailed("pharmacy_failed", "pharmacy_prep", agents.Pharmacy, err)
		return
	}
	plan := resp.(bus.PharmacyResponse)
	r.outcome.Medications = &models.MedicationPlan{
		PharmacyName:      plan.PharmacyName,
		Address:           plan.Address,
		Phone:             plan.Phone,
		ReadyTime:         plan.ReadyTime,
		TotalCost:         plan.TotalCost,
		InsuranceCoverage: plan.InsuranceCoverage,
	}
	r.event("pharmacy_ready", agents.Pharmacy, models.EventCompleted,
		"Medications ready at "+plan.PharmacyName,
		map[string]any{"total_cost": plan.TotalCost, "ready_time": plan.ReadyTime}, "")
	r.notify("pharmacy_prep", "completed")
}

// matchShelter runs the candidate/confirmation loop, at most ShelterRetry
// voice calls. Steps 4 and 5. Returns the best candidate seen and whether
// a candidate confirmed availability.
func (r *run) matchShelter() (*bus.ShelterMatchResponse, bool) {
	if r.cancelled() {
		return nil, false
	}
	r.event("shelter_matching_started", agents.Shelter, models.EventInProgress,
		"Searching for shelter with available bed",
		map[string]any{"accessibility_required": r.intake.NeedsAccessibility()}, "")

	var (
		best    *bus.ShelterMatchResponse
		exclude []string
	)
	for attempt := 0; attempt < r.engine.cfg.Workflow.ShelterRetry; attempt++ {
		resp, err := r.call(agents.Shelter, bus.MsgShelterMatch, bus.ShelterMatchRequest{
			CaseID:        r.caseID,
			Accessibility: r.intake.NeedsAccessibility(),
			Exclude:       exclude,
		})
		if err != nil {
			if errors.Is(err, fault.ErrCancelled) || r.cancelled() {
				return best, false
			}
			// No candidates left; best so far (if any) stays unconfirmed.
			break
		}
		match := resp.(bus.ShelterMatchResponse)
		if match.Selected == nil {
			break
		}

		details := map[string]any{
			"shelter":        match.Selected.Name,
			"available_beds": match.Selected.AvailableBeds,
			"attempt":        attempt + 1,
		}
		if match.AccessibilityWarning {
			details["accessibility_warning"] = true
		}
		r.event("shelter_candidate_selected", agents.Shelter, models.EventInProgress,
			"Candidate shelter: "+match.Selected.Name, details, "")

		if match.Transcript != "" {
			r.event("vapi_transcription", agents.Shelter, models.EventInfo,
				"Call transcript: "+transcriptPrefix(match.Transcript),
				map[string]any{"shelter": match.Selected.Name, "demo_mode": match.DemoMode},
				match.Transcript)
		}

		// Candidates arrive highest-availability first, so the first one
		// stays the fallback unless a later call actually confirms.
		if best == nil {
			best = &match
		}
		if match.AvailabilityConfirmed {
			best = &match
			r.event("shelter_confirmed", agents.Shelter, models.EventCompleted,
				fmt.Sprintf("%s confirmed %d beds", match.Selected.Name, match.Facts.BedsAvailable),
				map[string]any{"beds": match.Facts.BedsAvailable, "accessibility": match.Facts.Accessibility}, "")
			r.notify("shelter_matching", "completed")
			return best, true
		}
		exclude = append(exclude, match.Selected.Name)
	}

	if best == nil {
		r.stepFailed("shelter_failed", "shelter_matching", agents.Shelter,
			errors.New("no shelter with available beds"))
		r.outcome.Status = models.OutcomeFailed
		r.outcome.Error = "no shelter with available beds"
		return nil, false
	}

	// Candidates existed but none confirmed by phone: downgrade, keep going
	// with the best candidate.
	r.event("shelter_unconfirmed", agents.Shelter, models.EventInfo,
		"Proceeding with unconfirmed shelter "+best.Selected.Name,
		map[string]any{"attempts": len(exclude)}, "")
	r.notify("shelter_matching", "unconfirmed")
	r.outcome.Status = models.OutcomeUnconfirmedShelter
	return best, false
}

// fanOutResourcesAndEligibility runs steps 6 and 7 concurrently: resource
// coordination needs a shelter address, the eligibility check only needs
// the intake.
func (r *run) fanOutResourcesAndEligibility(best *bus.ShelterMatchResponse) {
	if r.cancelled() {
		return
	}
	g, _ := errgroup.WithContext(r.ctx)
	if best != nil {
		g.Go(func() error {
			r.coordinateResources(best)
			return nil
		})
	}
	g.Go(func() error {
		r.checkEligibility()
		return nil
	})
	_ = g.Wait()
}

// coordinateResources plans ancillary deliveries to the shelter. Step 6.
func (r *run) coordinateResources(best *bus.ShelterMatchResponse) {
	resp, err := r.call(agents.Resource, bus.MsgResourceRequest, bus.ResourceRequest{
		CaseID:          r.caseID,
		Items:           resourceItems,
		DeliveryAddress: best.Selected.Address,
		Dietary:         r.intake.Clinical.DietaryRestrictions,
	})
	if err != nil {
		r.stepFailed("resources_failed", "resource_coordination", agents.Resource, err)
		return
	}
	plan := resp.(bus.ResourceResponse)
	r.outcome.Resources = plan.Deliveries
	r.outcome.UnmetItems = plan.Unmet

	for _, d := range plan.Deliveries {
		r.event("resource_item", agents.Resource, models.EventInfo,
			fmt.Sprintf("%s from %s", d.Item, d.ProviderName),
			map[string]any{"item": d.Item, "provider": d.ProviderName, "pickup_window": d.PickupWindow}, "")
	}
	r.event("resources_summary", agents.Resource, models.EventCompleted,
		fmt.Sprintf("%d deliveries planned, %d unmet", len(plan.Deliveries), len(plan.Unmet)),
		map[string]any{"unmet": plan.Unmet}, "")
	r.notify("resource_coordination", "completed")
}

// checkEligibility evaluates benefit programs. Step 7.
func (r *run) checkEligibility() {
	resp, err := r.call(agents.Eligibility, bus.MsgEligibilityCheck, bus.EligibilityRequest{
		CaseID:          r.caseID,
		DOB:             r.intake.PatientDOB,
		IncomeLevel:     r.intake.IncomeLevel,
		CurrentBenefits: r.intake.Benefits,
	})
	if err != nil {
		r.stepFailed("eligibility_failed", "eligibility_check", agents.Eligibility, err)
		return
	}
	summary := resp.(models.BenefitsSummary)
	r.outcome.Benefits = &summary
	r.event("eligibility_checked", agents.Eligibility, models.EventCompleted,
		fmt.Sprintf("Eligible for $%.0f/month across %d programs",
			summary.TotalMonthlyBenefits, len(summary.Programs)),
		map[string]any{"manual_review": summary.RequiresManualReview}, "")
	r.notify("eligibility_check", "completed")
}

// scheduleTransport books the ride from hospital to shelter. Step 8.
func (r *run) scheduleTransport(best *bus.ShelterMatchResponse) {
	if r.cancelled() {
		return
	}
	pickup := r.intake.Discharge.FacilityAddress
	if pickup == "" {
		pickup = r.intake.Discharge.FacilityName
	}
	resp, err := r.call(agents.Transport, bus.MsgTransportSchedule, bus.TransportRequest{
		CaseID:                r.caseID,
		Pickup:                pickup,
		Dropoff:               best.Selected.Address,
		AccessibilityRequired: r.intake.NeedsAccessibility(),
	})
	if err != nil {
		r.stepFailed("transport_failed", "transport_scheduling", agents.Transport, err)
		if r.outcome.Status == models.OutcomeCoordinated {
			r.outcome.Status = models.OutcomeNoTransport
		}
		return
	}
	plan := resp.(bus.TransportResponse)
	r.outcome.Transport = &models.TransportPlan{
		Provider:      plan.Provider,
		Driver:        plan.Driver,
		Phone:         plan.Phone,
		PickupTime:    plan.PickupTime,
		ETAMinutes:    plan.ETAMinutes,
		RoutePolyline: plan.RoutePolyline,
	}
	r.event("transport_scheduled", agents.Transport, models.EventCompleted,
		fmt.Sprintf("%s pickup at %s", plan.Provider, plan.PickupTime.Format(time.RFC3339)),
		map[string]any{"provider": plan.Provider, "eta_minutes": plan.ETAMinutes}, "")
	r.notify("transport_scheduling", "completed")
}

// finalize computes the overall status, persists the terminal case row,
// appends the terminal event, and loads the full timeline. Step 9.
func (r *run) finalize(best *bus.ShelterMatchResponse, confirmed bool) {
	if r.cancelled() {
		// Cancelled runs write nothing further; the case row stays at its
		// last persisted step.
		r.outcome.Status = models.OutcomeFailed
		r.outcome.Error = "workflow cancelled"
		r.outcome.CompletedAt = time.Now().UTC()
		return
	}

	if best != nil {
		sel := best.Selected
		assignment := &models.ShelterAssignment{
			Name:                 sel.Name,
			Address:              sel.Address,
			Phone:                sel.Phone,
			Accessibility:        sel.Accessibility,
			Confirmed:            confirmed,
			AccessibilityWarning: best.AccessibilityWarning,
		}
		if confirmed {
			assignment.ConfirmedBeds = best.Facts.BedsAvailable
			assignment.Accessibility = best.Facts.Accessibility
			assignment.Services = best.Facts.Services
		} else {
			assignment.ConfirmedBeds = sel.AvailableBeds
			assignment.Services = sel.Services
		}
		r.outcome.Shelter = assignment
		r.kase.AssignedShelterID = sel.Name
	}
	if r.outcome.Transport != nil {
		r.kase.AssignedTransportProvider = r.outcome.Transport.Provider
	}
	r.kase.AssignedBenefits = r.outcome.Benefits

	now := time.Now().UTC()
	r.outcome.CompletedAt = now
	r.kase.CompletedAt = &now
	r.kase.CurrentStep = "completed"
	if r.outcome.Status == models.OutcomeFailed {
		r.kase.WorkflowStatus = models.WorkflowFailed
	} else {
		// Both downgrade statuses still count as a coordinated case row;
		// the outcome and terminal event carry the precise status.
		r.kase.WorkflowStatus = models.WorkflowCoordinated
	}

	terminalStatus := models.EventCompleted
	if r.outcome.Status == models.OutcomeFailed {
		terminalStatus = models.EventFailed
	}
	r.event("completed", agents.Coordinator, terminalStatus,
		"Workflow finished: "+string(r.outcome.Status),
		map[string]any{"final_status": string(r.outcome.Status)}, "")

	if err := r.engine.store.UpsertCase(r.ctx, r.kase); err != nil {
		r.engine.logger.Error("Terminal case upsert failed", "case_id", r.caseID, "error", err)
	}
	if events, err := r.engine.store.ListEvents(r.ctx, r.caseID); err == nil {
		r.outcome.Timeline = events
	}
	r.notify("finalize", string(r.outcome.Status))

	r.engine.logger.Info("Workflow finished",
		"case_id", r.caseID, "status", r.outcome.Status,
		"events", len(r.outcome.Timeline))
}

// transcriptPrefix shortens a transcript for event descriptions; the full
// text rides in the transcription field.
func transcriptPrefix(t string) string {
	t = strings.ReplaceAll(t, "\n", " ")
	if len(t) > 120 {
		return t[:120] + "..."
	}
	return t
}
