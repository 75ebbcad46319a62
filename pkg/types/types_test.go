package types

import (
	"encoding/json"
	"testing"
)

func TestActivityLevelFromClass(t *testing.T) {
	for i, want := range ActivityLevels() {
		got, err := ActivityLevelFromClass(i)
		if err != nil {
			t.Fatalf("class %d: %v", i, err)
		}
		if got != want {
			t.Errorf("class %d: expected %s, got %s", i, want, got)
		}
	}

	for _, class := range []int{-1, NumActivityLevels} {
		if _, err := ActivityLevelFromClass(class); err == nil {
			t.Errorf("Expected error for class %d", class)
		}
	}
}

func TestParseActivityLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected ActivityLevel
		wantErr  bool
	}{
		{"Low", Low, false},
		{"moderate", Moderate, false},
		{" ACTIVE ", Active, false},
		{"High", High, false},
		{"Feeding", Feeding, false},
		{"unclear", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		got, err := ParseActivityLevel(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", test.input)
			}
			continue
		}
		if err != nil || got != test.expected {
			t.Errorf("%q: expected %s, got %s (%v)", test.input, test.expected, got, err)
		}
	}
}

func TestActivityLevelString(t *testing.T) {
	if Feeding.String() != "Feeding" {
		t.Errorf("Expected Feeding, got %s", Feeding)
	}
	if s := ActivityLevel(9).String(); s != "ActivityLevel(9)" {
		t.Errorf("Unexpected label for out-of-range level: %s", s)
	}
}

func TestActivityLevelJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Level ActivityLevel `json:"activity_level"`
	}{High})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"activity_level":"High"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var decoded struct {
		Level ActivityLevel `json:"activity_level"`
	}
	if err := json.Unmarshal([]byte(`{"activity_level":"feeding"}`), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Level != Feeding {
		t.Errorf("Expected Feeding, got %s", decoded.Level)
	}

	if err := json.Unmarshal([]byte(`{"activity_level":"Frantic"}`), &decoded); err == nil {
		t.Error("Expected error for unknown label")
	}
}
