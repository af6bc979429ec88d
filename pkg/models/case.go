// Package models holds the shared domain types: cases, timeline events,
// cached listings, and workflow outcomes.
package models

import "time"

// WorkflowStatus is the lifecycle state persisted on the case row.
type WorkflowStatus string

// Workflow statuses.
const (
	WorkflowInitiated   WorkflowStatus = "initiated"
	WorkflowInProgress  WorkflowStatus = "in_progress"
	WorkflowCoordinated WorkflowStatus = "coordinated"
	WorkflowFailed      WorkflowStatus = "failed"
)

// Medication is one prescribed medication on the discharge record.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Contact holds the patient's contact details.
type Contact struct {
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Address          string `json:"address,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Zip              string `json:"zip,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	EmergencyPhone   string `json:"emergency_phone,omitempty"`
}

// Discharge describes where the patient is being discharged from.
type Discharge struct {
	FacilityName       string `json:"facility_name"`
	FacilityPhone      string `json:"facility_phone,omitempty"`
	FacilityAddress    string `json:"facility_address,omitempty"`
	MRN                string `json:"mrn,omitempty"`
	AdmissionDate      string `json:"admission_date,omitempty"`
	DischargeDate      string `json:"discharge_date,omitempty"`
	Destination        string `json:"destination,omitempty"`
	AttendingPhysician string `json:"attending_physician,omitempty"`
}

// Clinical holds the clinical details that drive coordination decisions.
type Clinical struct {
	PrimaryCondition    string       `json:"primary_condition,omitempty"`
	Diagnosis           string       `json:"diagnosis,omitempty"`
	Medications         []Medication `json:"medications,omitempty"`
	Allergies           string       `json:"allergies,omitempty"`
	AccessibilityNeeds  string       `json:"accessibility_needs,omitempty"`
	DietaryRestrictions string       `json:"dietary_restrictions,omitempty"`
	SocialNeeds         string       `json:"social_needs,omitempty"`
	Notes               string       `json:"notes,omitempty"`
}

// FollowUp holds post-discharge follow-up care details.
type FollowUp struct {
	Physician         string `json:"physician,omitempty"`
	PrimaryCareClinic string `json:"primary_care_clinic,omitempty"`
	AppointmentDate   string `json:"appointment_date,omitempty"`
	Instructions      string `json:"instructions,omitempty"`
	AdherenceBarriers string `json:"adherence_barriers,omitempty"`
}

// Case is one discharge-coordination case row. CaseID is the primary key.
type Case struct {
	CaseID      string    `json:"case_id"`
	PatientName string    `json:"patient_name"`
	PatientDOB  string    `json:"patient_dob,omitempty"`
	Contact     Contact   `json:"contact"`
	Discharge   Discharge `json:"discharge"`
	Clinical    Clinical  `json:"clinical"`
	FollowUp    FollowUp  `json:"follow_up"`

	WorkflowStatus WorkflowStatus `json:"workflow_status"`
	CurrentStep    string         `json:"current_step,omitempty"`

	AssignedShelterID         string           `json:"assigned_shelter_id,omitempty"`
	AssignedTransportProvider string           `json:"assigned_transport_provider,omitempty"`
	AssignedBenefits          *BenefitsSummary `json:"assigned_benefits,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the workflow has finished, either way.
func (c *Case) Terminal() bool {
	return c.WorkflowStatus == WorkflowCoordinated || c.WorkflowStatus == WorkflowFailed
}

// CaseSummary is the list-view projection of a case.
type CaseSummary struct {
	CaseID          string         `json:"case_id"`
	PatientName     string         `json:"patient_name"`
	WorkflowStatus  WorkflowStatus `json:"workflow_status"`
	CurrentStep     string         `json:"current_step,omitempty"`
	AssignedShelter string         `json:"assigned_shelter,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Summary projects the case to its list view.
func (c *Case) Summary() CaseSummary {
	return CaseSummary{
		CaseID:          c.CaseID,
		PatientName:     c.PatientName,
		WorkflowStatus:  c.WorkflowStatus,
		CurrentStep:     c.CurrentStep,
		AssignedShelter: c.AssignedShelterID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
