package model

import "testing"

func intPtr(v int) *int { return &v }

func TestNavStatusLabel(t *testing.T) {
	tests := []struct {
		name string
		code *int
		want string
	}{
		{"engine", intPtr(0), "Under way using engine"},
		{"anchor", intPtr(1), "At anchor"},
		{"moored", intPtr(5), "Moored"},
		{"sailing", intPtr(8), "Under way sailing"},
		{"undefined", intPtr(15), "Undefined"},
		{"reserved code", intPtr(9), "Unknown"},
		{"negative", intPtr(-1), "Unknown"},
		{"absent", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NavStatusLabel(tt.code); got != tt.want {
				t.Errorf("NavStatusLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPosition_Valid(t *testing.T) {
	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{Lat: 10.1234, Lon: 20.5678}, true},
		{Position{Lat: -90, Lon: -180}, true},
		{Position{Lat: 90, Lon: 180}, true},
		{Position{Lat: 91, Lon: 181}, false}, // AIS "not available"
		{Position{Lat: 0, Lon: 181}, false},
		{Position{Lat: -90.5, Lon: 0}, false},
	}

	for _, tt := range tests {
		if got := tt.pos.Valid(); got != tt.want {
			t.Errorf("Position%+v.Valid() = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestVesselState_LastUpdate(t *testing.T) {
	s := VesselState{Ref: VesselRef{ID: "1", DisplayName: "A"}}
	if got := s.LastUpdate(); got != "No updates" {
		t.Errorf("LastUpdate() = %q, want %q", got, "No updates")
	}

	s.Latest = &TelemetryUpdate{ObservedAt: "2024-01-15 12:00:00 UTC"}
	if got := s.LastUpdate(); got != "2024-01-15 12:00:00 UTC" {
		t.Errorf("LastUpdate() = %q", got)
	}
}

func TestFormatOptional(t *testing.T) {
	if got := FormatOptional(nil); got != "N/A" {
		t.Errorf("FormatOptional(nil) = %q, want N/A", got)
	}
	v := 5.2
	if got := FormatOptional(&v); got != "5.2" {
		t.Errorf("FormatOptional(5.2) = %q, want 5.2", got)
	}
}
