package vitals

import "testing"

func f(v float64) *float64 { return &v }

func TestClassifyHypertensiveCrisis(t *testing.T) {
	a := Classify(Reading{Systolic: f(185), Diastolic: f(125)})
	if !a.HasCritical() {
		t.Fatal("expected a critical alert")
	}
	if len(a.CriticalAlerts) != 1 || a.CriticalAlerts[0].Parameter != ParamBloodPressure {
		t.Errorf("unexpected critical alerts: %+v", a.CriticalAlerts)
	}
	if len(a.WarningAlerts) != 0 {
		t.Errorf("unexpected warnings: %+v", a.WarningAlerts)
	}
}

func TestClassifyBloodPressureBands(t *testing.T) {
	cases := []struct {
		name     string
		sys, dia float64
		want     string // "critical", "warning", "normal"
	}{
		{"normal", 120, 80, "normal"},
		{"systolic at warning bound", 140, 80, "warning"},
		{"diastolic at warning bound", 120, 90, "warning"},
		{"systolic at critical bound", 180, 80, "critical"},
		{"diastolic at critical bound", 130, 120, "critical"},
		{"just under warning", 139, 89, "normal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Classify(Reading{Systolic: f(tc.sys), Diastolic: f(tc.dia)})
			got := "normal"
			if len(a.WarningAlerts) > 0 {
				got = "warning"
			}
			if len(a.CriticalAlerts) > 0 {
				got = "critical"
			}
			if got != tc.want {
				t.Errorf("%g/%g: got %s, want %s", tc.sys, tc.dia, got, tc.want)
			}
		})
	}
}

func TestClassifyTemperatureBothTails(t *testing.T) {
	if a := Classify(Reading{TemperatureC: f(40.5)}); !a.HasCritical() {
		t.Error("40.5 °C should be critical")
	}
	if a := Classify(Reading{TemperatureC: f(34.5)}); !a.HasCritical() {
		t.Error("34.5 °C should be critical")
	}
	if a := Classify(Reading{TemperatureC: f(38.5)}); len(a.WarningAlerts) != 1 {
		t.Error("38.5 °C should be a warning")
	}
	if a := Classify(Reading{TemperatureC: f(36.8)}); len(a.NormalParameters) != 1 {
		t.Error("36.8 °C should be normal")
	}
}

func TestClassifySpO2(t *testing.T) {
	if a := Classify(Reading{SpO2Percent: f(88)}); !a.HasCritical() {
		t.Error("SpO2 88%% should be critical")
	}
	if a := Classify(Reading{SpO2Percent: f(92)}); len(a.WarningAlerts) != 1 {
		t.Error("SpO2 92%% should be a warning")
	}
	if a := Classify(Reading{SpO2Percent: f(98)}); len(a.NormalParameters) != 1 {
		t.Error("SpO2 98%% should be normal")
	}
}

func TestClassifySkipsAbsentParameters(t *testing.T) {
	a := Classify(Reading{PulseBPM: f(72)})
	if len(a.CriticalAlerts) != 0 || len(a.WarningAlerts) != 0 {
		t.Errorf("unexpected alerts: %+v %+v", a.CriticalAlerts, a.WarningAlerts)
	}
	if len(a.NormalParameters) != 1 || a.NormalParameters[0] != ParamPulse {
		t.Errorf("expected only pulse evaluated, got %v", a.NormalParameters)
	}
}

func TestClassifyMixedSeverities(t *testing.T) {
	a := Classify(Reading{
		Systolic:    f(190),
		Diastolic:   f(95),
		PulseBPM:    f(110),
		GlucoseMGDL: f(100),
	})
	if len(a.CriticalAlerts) != 1 {
		t.Errorf("expected 1 critical, got %+v", a.CriticalAlerts)
	}
	if len(a.WarningAlerts) != 1 || a.WarningAlerts[0].Parameter != ParamPulse {
		t.Errorf("expected pulse warning, got %+v", a.WarningAlerts)
	}
	if len(a.NormalParameters) != 1 || a.NormalParameters[0] != ParamGlucose {
		t.Errorf("expected glucose normal, got %v", a.NormalParameters)
	}
}

// The reconciler replays stored outcomes byte for byte, so classification
// must be deterministic across calls.
func TestClassifyDeterministic(t *testing.T) {
	r := Reading{Systolic: f(150), Diastolic: f(95), TemperatureC: f(38.2), SpO2Percent: f(93)}
	first := Classify(r)
	for i := 0; i < 5; i++ {
		again := Classify(r)
		if len(again.CriticalAlerts) != len(first.CriticalAlerts) ||
			len(again.WarningAlerts) != len(first.WarningAlerts) ||
			len(again.NormalParameters) != len(first.NormalParameters) {
			t.Fatal("classification varies across calls")
		}
		for j := range first.WarningAlerts {
			if again.WarningAlerts[j] != first.WarningAlerts[j] {
				t.Fatalf("warning %d differs: %+v vs %+v", j, again.WarningAlerts[j], first.WarningAlerts[j])
			}
		}
	}
}
