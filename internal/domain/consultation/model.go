package consultation

import "time"

// Prescription is one prescribed medication line within a consultation.
type Prescription struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// Consultation records a clinical encounter between a patient and a
// practitioner.
type Consultation struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	PatientID      string         `json:"patient_id"`
	PractitionerID string         `json:"practitioner_id,omitempty"`
	Symptoms       string         `json:"symptoms,omitempty"`
	Diagnosis      string         `json:"diagnosis,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Prescriptions  []Prescription `json:"prescriptions,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CreatedAt      time.Time      `json:"created_at"`
}
