package models

import "time"

// OutcomeStatus is the user-visible final status of a workflow run.
// Richer than WorkflowStatus: the two downgrade variants persist on the
// outcome and the terminal timeline event while the Case row records
// coordinated.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeCoordinated        OutcomeStatus = "coordinated"
	OutcomeNoTransport        OutcomeStatus = "coordinated-without-transport"
	OutcomeUnconfirmedShelter OutcomeStatus = "unconfirmed-shelter"
	OutcomeFailed             OutcomeStatus = "failed"
)

// ShelterAssignment summarizes the shelter placement in an outcome.
type ShelterAssignment struct {
	Name                 string   `json:"name"`
	Address              string   `json:"address"`
	Phone                string   `json:"phone,omitempty"`
	ConfirmedBeds        int      `json:"confirmed_beds"`
	Accessibility        bool     `json:"accessibility"`
	Services             []string `json:"services,omitempty"`
	Confirmed            bool     `json:"confirmed"`
	AccessibilityWarning bool     `json:"accessibility_warning,omitempty"`
}

// TransportPlan summarizes the scheduled ride in an outcome.
type TransportPlan struct {
	Provider      string       `json:"provider"`
	Driver        string       `json:"driver,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	PickupTime    time.Time    `json:"pickup_time"`
	ETAMinutes    int          `json:"eta_minutes"`
	RoutePolyline [][2]float64 `json:"route_polyline,omitempty"`
}

// MedicationPlan summarizes the pharmacy preparation in an outcome.
type MedicationPlan struct {
	PharmacyName      string    `json:"pharmacy_name"`
	Address           string    `json:"address,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	ReadyTime         time.Time `json:"ready_time"`
	TotalCost         float64   `json:"total_cost"`
	InsuranceCoverage string    `json:"insurance_coverage,omitempty"`
}

// BenefitsSummary summarizes the eligibility check in an outcome.
type BenefitsSummary struct {
	Programs             []ProgramEligibility `json:"programs"`
	TotalMonthlyBenefits float64              `json:"total_monthly_benefits"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	NextSteps            []string             `json:"next_steps,omitempty"`
}

// ProgramEligibility is one program row of a benefits summary.
type ProgramEligibility struct {
	Name          string  `json:"name"`
	Eligible      bool    `json:"eligible"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Status        string  `json:"status,omitempty"`
}

// CaseManagerAssignment records the assigned human case manager.
type CaseManagerAssignment struct {
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Department       string    `json:"department"`
	FirstContactDate time.Time `json:"first_contact_date"`
}

// ResourceDelivery is one planned ancillary delivery (food, hygiene,
// clothing).
type ResourceDelivery struct {
	Item         string `json:"item"`
	ProviderName string `json:"provider_name"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PickupWindow string `json:"pickup_window,omitempty"`
}

// Outcome is the complete result of one coordinate() run. Failures are
// reported inside the outcome; coordinate never returns an error to the
// HTTP caller.
type Outcome struct {
	CaseID      string                 `json:"case_id"`
	Status      OutcomeStatus          `json:"status"`
	Shelter     *ShelterAssignment     `json:"shelter,omitempty"`
	Transport   *TransportPlan         `json:"transport,omitempty"`
	Medications *MedicationPlan        `json:"medications,omitempty"`
	Benefits    *BenefitsSummary       `json:"benefits,omitempty"`
	CaseManager *CaseManagerAssignment `json:"case_manager,omitempty"`
	Resources   []ResourceDelivery     `json:"resources,omitempty"`
	UnmetItems  []string               `json:"unmet_items,omitempty"`
	Timeline    []TimelineEvent        `json:"timeline"`
	Error       string                 `json:"error,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}
