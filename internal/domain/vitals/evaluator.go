package vitals

import "fmt"

// Parameter names used in analyses.
const (
	ParamBloodPressure = "blood_pressure"
	ParamTemperature   = "temperature"
	ParamPulse         = "pulse"
	ParamRespiration   = "respiration"
	ParamSpO2          = "spo2"
	ParamGlucose       = "glucose"
)

// Threshold bands per parameter. A value at or beyond the critical bound is
// critical; at or beyond the warning bound, warning; otherwise normal.
const (
	systolicCritical  = 180.0
	systolicWarning   = 140.0
	diastolicCritical = 120.0
	diastolicWarning  = 90.0

	tempHighCritical = 40.0
	tempHighWarning  = 38.0
	tempLowWarning   = 36.0
	tempLowCritical  = 35.0

	pulseHighCritical = 150.0
	pulseHighWarning  = 100.0
	pulseLowWarning   = 60.0
	pulseLowCritical  = 40.0

	respHighCritical = 30.0
	respHighWarning  = 20.0
	respLowWarning   = 12.0
	respLowCritical  = 8.0

	spo2Warning  = 94.0
	spo2Critical = 90.0

	glucoseHighCritical = 400.0
	glucoseHighWarning  = 180.0
	glucoseLowWarning   = 70.0
	glucoseLowCritical  = 54.0
)

// Classify derives the severity analysis for a reading. It is a pure
// function: identical input always yields identical output, which the sync
// reconciler's idempotent replay path depends on. Parameters not present in
// the reading are skipped entirely.
func Classify(r Reading) Analysis {
	a := Analysis{
		CriticalAlerts:   []Alert{},
		WarningAlerts:    []Alert{},
		NormalParameters: []string{},
	}

	if r.Systolic != nil || r.Diastolic != nil {
		sys, dia := deref(r.Systolic), deref(r.Diastolic)
		switch {
		case sys >= systolicCritical || dia >= diastolicCritical:
			a.critical(ParamBloodPressure,
				fmt.Sprintf("blood pressure %.0f/%.0f mmHg in hypertensive crisis range", sys, dia))
		case sys >= systolicWarning || dia >= diastolicWarning:
			a.warning(ParamBloodPressure,
				fmt.Sprintf("blood pressure %.0f/%.0f mmHg elevated", sys, dia))
		default:
			a.normal(ParamBloodPressure)
		}
	}

	if r.TemperatureC != nil {
		t := *r.TemperatureC
		switch {
		case t >= tempHighCritical || t <= tempLowCritical:
			a.critical(ParamTemperature, fmt.Sprintf("temperature %.1f °C critical", t))
		case t >= tempHighWarning || t < tempLowWarning:
			a.warning(ParamTemperature, fmt.Sprintf("temperature %.1f °C abnormal", t))
		default:
			a.normal(ParamTemperature)
		}
	}

	if r.PulseBPM != nil {
		p := *r.PulseBPM
		switch {
		case p >= pulseHighCritical || p <= pulseLowCritical:
			a.critical(ParamPulse, fmt.Sprintf("pulse %.0f bpm critical", p))
		case p >= pulseHighWarning || p < pulseLowWarning:
			a.warning(ParamPulse, fmt.Sprintf("pulse %.0f bpm abnormal", p))
		default:
			a.normal(ParamPulse)
		}
	}

	if r.RespirationRPM != nil {
		rr := *r.RespirationRPM
		switch {
		case rr >= respHighCritical || rr <= respLowCritical:
			a.critical(ParamRespiration, fmt.Sprintf("respiration %.0f breaths/min critical", rr))
		case rr >= respHighWarning || rr < respLowWarning:
			a.warning(ParamRespiration, fmt.Sprintf("respiration %.0f breaths/min abnormal", rr))
		default:
			a.normal(ParamRespiration)
		}
	}

	if r.SpO2Percent != nil {
		s := *r.SpO2Percent
		switch {
		case s < spo2Critical:
			a.critical(ParamSpO2, fmt.Sprintf("oxygen saturation %.0f%% critically low", s))
		case s < spo2Warning:
			a.warning(ParamSpO2, fmt.Sprintf("oxygen saturation %.0f%% low", s))
		default:
			a.normal(ParamSpO2)
		}
	}

	if r.GlucoseMGDL != nil {
		g := *r.GlucoseMGDL
		switch {
		case g >= glucoseHighCritical || g <= glucoseLowCritical:
			a.critical(ParamGlucose, fmt.Sprintf("glucose %.0f mg/dL critical", g))
		case g >= glucoseHighWarning || g < glucoseLowWarning:
			a.warning(ParamGlucose, fmt.Sprintf("glucose %.0f mg/dL abnormal", g))
		default:
			a.normal(ParamGlucose)
		}
	}

	return a
}

func (a *Analysis) critical(param, msg string) {
	a.CriticalAlerts = append(a.CriticalAlerts, Alert{Parameter: param, Message: msg})
}

func (a *Analysis) warning(param, msg string) {
	a.WarningAlerts = append(a.WarningAlerts, Alert{Parameter: param, Message: msg})
}

func (a *Analysis) normal(param string) {
	a.NormalParameters = append(a.NormalParameters, param)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
