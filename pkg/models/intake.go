package models

import (
	"strings"

	"github.com/carebridge/carebridge/pkg/fault"
)

// Intake is the structured discharge record submitted to POST /discharge,
// either filled by hand or prefilled by the document extractor.
type Intake struct {
	CaseID      string         `json:"case_id,omitempty"`
	PatientName string         `json:"patient_name"`
	PatientDOB  string         `json:"patient_dob,omitempty"`
	Contact     Contact        `json:"contact"`
	Discharge   Discharge      `json:"discharge"`
	Clinical    Clinical       `json:"clinical"`
	FollowUp    FollowUp       `json:"follow_up"`
	IncomeLevel string         `json:"income_level,omitempty"` // low, very_low, none, moderate
	Benefits    []string       `json:"current_benefits,omitempty"`
	FormData    map[string]any `json:"form_data,omitempty"`
}

// Validate checks the intake's required fields.
func (in *Intake) Validate() error {
	if strings.TrimSpace(in.PatientName) == "" {
		return fault.NewValidationError("patient_name", "required")
	}
	if strings.TrimSpace(in.Discharge.FacilityName) == "" {
		return fault.NewValidationError("discharge.facility_name", "required")
	}
	return nil
}

// NeedsAccessibility reports whether the intake calls for wheelchair or
// otherwise accessible placement.
func (in *Intake) NeedsAccessibility() bool {
	needs := strings.ToLower(in.Clinical.AccessibilityNeeds)
	if needs == "" || needs == "none" {
		return false
	}
	return true
}

// ToCase materializes the Case row for a new workflow run.
func (in *Intake) ToCase(caseID string) *Case {
	return &Case{
		CaseID:         caseID,
		PatientName:    in.PatientName,
		PatientDOB:     in.PatientDOB,
		Contact:        in.Contact,
		Discharge:      in.Discharge,
		Clinical:       in.Clinical,
		FollowUp:       in.FollowUp,
		WorkflowStatus: WorkflowInitiated,
	}
}
