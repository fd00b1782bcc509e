package vitals

import "time"

// Reading is a single vital-signs capture for a patient. Optional
// measurements are pointers; only the parameters actually taken are
// classified.
type Reading struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	PatientID      string    `json:"patient_id"`
	Systolic       *float64  `json:"systolic,omitempty"`        // mmHg
	Diastolic      *float64  `json:"diastolic,omitempty"`       // mmHg
	TemperatureC   *float64  `json:"temperature_c,omitempty"`   // °C
	PulseBPM       *float64  `json:"pulse_bpm,omitempty"`       // beats/min
	RespirationRPM *float64  `json:"respiration_rpm,omitempty"` // breaths/min
	SpO2Percent    *float64  `json:"spo2_percent,omitempty"`    // %
	GlucoseMGDL    *float64  `json:"glucose_mgdl,omitempty"`    // mg/dL
	WeightKG       *float64  `json:"weight_kg,omitempty"`
	HeightCM       *float64  `json:"height_cm,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
	// Analysis is computed once at ingestion and never recomputed, so the
	// stored record reflects the thresholds in force at capture time.
	Analysis  *Analysis `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is one triggered severity finding on a parameter.
type Alert struct {
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

// Analysis is the severity classification of a reading.
type Analysis struct {
	CriticalAlerts   []Alert  `json:"critical_alerts"`
	WarningAlerts    []Alert  `json:"warning_alerts"`
	NormalParameters []string `json:"normal_parameters"`
}

// HasCritical reports whether any parameter landed in the critical tier.
func (a *Analysis) HasCritical() bool {
	return len(a.CriticalAlerts) > 0
}
