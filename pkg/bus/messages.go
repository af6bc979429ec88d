// Package bus is the in-process agent message layer: a name→handler
// address book with typed request/reply dispatch, timeouts, one-way
// workflow-update fan-out, and a bounded conversation log for
// observability.
package bus

import (
	"time"

	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/voice"
)

// MessageType tags each request/response contract. The set is closed:
// every pair is fixed at registration.
type MessageType string

// Message types.
const (
	MsgShelterMatch      MessageType = "shelter.match"
	MsgTransportSchedule MessageType = "transport.schedule"
	MsgResourceRequest   MessageType = "resource.request"
	MsgPharmacyPrepare   MessageType = "pharmacy.prepare"
	MsgEligibilityCheck  MessageType = "eligibility.check"
	MsgSocialWorker      MessageType = "socialworker.assign"
	MsgWorkflowUpdate    MessageType = "workflow.update"
)

// ShelterMatchRequest asks the shelter agent for a confirmed placement
// candidate. Exclude lists shelters already tried this run.
type ShelterMatchRequest struct {
	CaseID        string   `json:"case_id"`
	Accessibility bool     `json:"accessibility"`
	Exclude       []string `json:"exclude,omitempty"`
}

// ShelterMatchResponse is the shelter agent's answer: the selected
// candidate plus the voice-confirmation outcome.
type ShelterMatchResponse struct {
	Selected              *models.ShelterListing `json:"selected"`
	AvailabilityConfirmed bool                   `json:"availability_confirmed"`
	Facts                 voice.ShelterFacts     `json:"facts"`
	Transcript            string                 `json:"transcript,omitempty"`
	AccessibilityWarning  bool                   `json:"accessibility_warning,omitempty"`
	DemoMode              bool                   `json:"demo_mode,omitempty"`
}

// TransportRequest asks the transport agent for a ride.
type TransportRequest struct {
	CaseID                string `json:"case_id"`
	Pickup                string `json:"pickup"`
	Dropoff               string `json:"dropoff"`
	AccessibilityRequired bool   `json:"accessibility_required"`
}

// TransportResponse is the scheduled ride.
type TransportResponse struct {
	Provider      string       `json:"provider"`
	Driver        string       `json:"driver,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	PickupTime    time.Time    `json:"pickup_time"`
	ETAMinutes    int          `json:"eta_minutes"`
	RoutePolyline [][2]float64 `json:"route_polyline,omitempty"`
}

// ResourceRequest asks the resource agent for one provider per item class.
type ResourceRequest struct {
	CaseID          string   `json:"case_id"`
	Items           []string `json:"items"`
	DeliveryAddress string   `json:"delivery_address"`
	Dietary         string   `json:"dietary,omitempty"`
}

// ResourceResponse carries per-item delivery plans plus unmatched items.
type ResourceResponse struct {
	Deliveries []models.ResourceDelivery `json:"deliveries"`
	Unmet      []string                  `json:"unmet,omitempty"`
}

// PharmacyRequest asks the pharmacy agent to prepare medications.
type PharmacyRequest struct {
	CaseID      string              `json:"case_id"`
	Medications []models.Medication `json:"medications"`
	Location    string              `json:"location,omitempty"`
}

// PharmacyResponse is the prepared medication plan.
type PharmacyResponse struct {
	PharmacyName      string    `json:"pharmacy_name"`
	Address           string    `json:"address,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	ReadyTime         time.Time `json:"ready_time"`
	TotalCost         float64   `json:"total_cost"`
	InsuranceCoverage string    `json:"insurance_coverage,omitempty"`
}

// EligibilityRequest asks the eligibility agent to evaluate benefit
// programs.
type EligibilityRequest struct {
	CaseID          string   `json:"case_id"`
	DOB             string   `json:"dob,omitempty"`
	IncomeLevel     string   `json:"income_level,omitempty"`
	CurrentBenefits []string `json:"current_benefits,omitempty"`
}

// EligibilityResponse is the evaluated benefits summary.
type EligibilityResponse = models.BenefitsSummary

// SocialWorkerRequest asks for a case-manager assignment.
type SocialWorkerRequest struct {
	CaseID      string `json:"case_id"`
	PatientName string `json:"patient_name"`
	Needs       string `json:"needs,omitempty"`
}

// SocialWorkerResponse is the assigned case manager.
type SocialWorkerResponse = models.CaseManagerAssignment

// WorkflowUpdate is the one-way progress notification fanned out to
// subscribers (the analytics agent).
type WorkflowUpdate struct {
	CaseID    string    `json:"case_id"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}
