package domain

import "testing"

func fptr(v float64) *float64 { return &v }

func TestDeriveStatus(t *testing.T) {
	pump := &Pump{
		Name:        "P1",
		MinPressure: fptr(20),
		MaxPressure: fptr(80),
		PowerRating: fptr(15),
	}

	cases := []struct {
		name   string
		sample MetricSample
		want   PumpStatus
	}{
		{"not operating", MetricSample{IsOperating: false}, StatusInactive},
		{"overheating", MetricSample{Temperature: 90, Pressure: 50, IsOperating: true}, StatusError},
		{"temperature at threshold is fine", MetricSample{Temperature: 80, Pressure: 50, IsOperating: true}, StatusActive},
		{"pressure below minimum", MetricSample{Temperature: 50, Pressure: 10, IsOperating: true}, StatusError},
		{"pressure at minimum is fine", MetricSample{Temperature: 50, Pressure: 20, IsOperating: true}, StatusActive},
		{"healthy", MetricSample{Temperature: 50, Pressure: 50, IsOperating: true}, StatusActive},
		{"not operating wins over overheating", MetricSample{Temperature: 90, IsOperating: false}, StatusInactive},
	}

	for _, tc := range cases {
		if got := DeriveStatus(tc.sample, pump); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDeriveStatusNoMinPressure(t *testing.T) {
	pump := &Pump{Name: "P2"}

	// Without a configured minimum, low pressure alone is not an error.
	got := DeriveStatus(MetricSample{Temperature: 50, Pressure: 1, IsOperating: true}, pump)
	if got != StatusActive {
		t.Fatalf("got %q, want %q", got, StatusActive)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []PumpStatus{StatusActive, StatusInactive, StatusMaintenance, StatusError} {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidStatus("broken") {
		t.Error("expected unknown status to be invalid")
	}
}
