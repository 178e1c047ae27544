package entity

import (
	"testing"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		input        string
		wantRoad     string
		wantSpeed    int // 0 means unset
		wantAsset    string
		wantDefect   string
		wantLocation string
	}{
		{
			input:      "Faded STOP sign on 65 kmph highway",
			wantRoad:   "Highway",
			wantSpeed:  65,
			wantAsset:  "STOP Sign",
			wantDefect: "Faded",
		},
		{
			input:        "Missing road markings at pedestrian crossing",
			wantAsset:    "Road Marking",
			wantDefect:   "Missing",
			wantLocation: "Pedestrian Crossing",
		},
		{
			input:      "Damaged speed breaker on urban road",
			wantRoad:   "Urban",
			wantAsset:  "Speed Breaker",
			wantDefect: "Damaged",
		},
		{
			input:      "speed limit sign obscured by trees on rural road near 40 km/h zone",
			wantRoad:   "Rural",
			wantSpeed:  40,
			wantAsset:  "Speed Limit Sign",
			wantDefect: "Obscured",
		},
		{
			input:        "worn zebra crossing near school",
			wantAsset:    "Zebra Crossing",
			wantDefect:   "Faded",
			wantLocation: "School Zone",
		},
		{
			input:     "chevron signs too far apart on the bend at 80kmph",
			wantSpeed: 80,
			// "chevron sign" is singular in the vocabulary; "chevron" still matches.
			wantAsset:    "Chevron Sign",
			wantDefect:   "Spacing Issue",
			wantLocation: "Curve",
		},
		{
			input:     "faded centre line, 30 mph stretch",
			wantSpeed: 48, // converted to km/h
			wantAsset: "Centre Line Marking", wantDefect: "Faded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Extract(tt.input)
			if got.RoadType != tt.wantRoad {
				t.Errorf("RoadType = %q, want %q", got.RoadType, tt.wantRoad)
			}
			if got.AssetType != tt.wantAsset {
				t.Errorf("AssetType = %q, want %q", got.AssetType, tt.wantAsset)
			}
			if got.DefectType != tt.wantDefect {
				t.Errorf("DefectType = %q, want %q", got.DefectType, tt.wantDefect)
			}
			if got.LocationContext != tt.wantLocation {
				t.Errorf("LocationContext = %q, want %q", got.LocationContext, tt.wantLocation)
			}
			switch {
			case tt.wantSpeed == 0 && got.SpeedKmph != nil:
				t.Errorf("SpeedKmph = %d, want unset", *got.SpeedKmph)
			case tt.wantSpeed != 0 && got.SpeedKmph == nil:
				t.Errorf("SpeedKmph unset, want %d", tt.wantSpeed)
			case tt.wantSpeed != 0 && *got.SpeedKmph != tt.wantSpeed:
				t.Errorf("SpeedKmph = %d, want %d", *got.SpeedKmph, tt.wantSpeed)
			}
		})
	}
}

func TestExtractNoEntities(t *testing.T) {
	for _, q := range []string{"help", "what should I do", ""} {
		if got := Extract(q); !got.Empty() {
			t.Errorf("Extract(%q) = %+v, want empty entities", q, got)
		}
	}
}

func TestExtractSpeedRequiresUnit(t *testing.T) {
	// A bare number without a speed-unit token is not a speed.
	got := Extract("section 65 of the road near the highway")
	if got.SpeedKmph != nil {
		t.Errorf("SpeedKmph = %d, want unset for unit-less number", *got.SpeedKmph)
	}
	if got.RoadType != "Highway" {
		t.Errorf("RoadType = %q, want Highway", got.RoadType)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	const q = "Faded STOP sign on 65 kmph highway"
	a, b := Extract(q), Extract(q)
	if a.RoadType != b.RoadType || a.AssetType != b.AssetType ||
		a.DefectType != b.DefectType || a.LocationContext != b.LocationContext {
		t.Errorf("repeated extraction differs: %+v vs %+v", a, b)
	}
}

func TestExtractUnsetAttributesStayUnset(t *testing.T) {
	got := Extract("Damaged speed breaker")
	want := domain.QueryEntities{AssetType: "Speed Breaker", DefectType: "Damaged"}
	if got != want {
		t.Errorf("Extract = %+v, want %+v", got, want)
	}
}
