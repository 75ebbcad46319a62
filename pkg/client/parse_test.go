package client

import "testing"

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain", `{"activity_level":"Low"}`, `{"activity_level":"Low"}`},
		{"fenced", "```json\n{\"activity_level\":\"High\"}\n```", `{"activity_level":"High"}`},
		{"trailing comma", `{"activity_level":"High","confidence":0.8,}`, `{"activity_level":"High","confidence":0.8}`},
		{"prose around", `Sure! {"activity_level":"Feeding"} hope this helps`, `{"activity_level":"Feeding"}`},
		{"block comment", `{/* note */"activity_level":"Active"}`, `{"activity_level":"Active"}`},
	}

	for _, test := range tests {
		if got := SanitizeModelJSON(test.raw); got != test.expected {
			t.Errorf("%s: SanitizeModelJSON() = %q, expected %q", test.name, got, test.expected)
		}
	}
}

func TestParseActivityOpinion(t *testing.T) {
	op := ParseActivityOpinion("```json\n{\"activity_level\":\"Feeding\",\"confidence\":0.8,\"reasoning\":\"surface splashing\"}\n```")
	if op.ActivityLevel != "Feeding" || op.Confidence != 0.8 || op.Reasoning != "surface splashing" {
		t.Errorf("unexpected opinion %+v", op)
	}

	for _, raw := range []string{"I cannot tell", `{"activity_level": }`, `{"confidence":0.9}`} {
		op := ParseActivityOpinion(raw)
		if op.ActivityLevel != Unclear || op.Confidence != 0 {
			t.Errorf("ParseActivityOpinion(%q) = %+v, expected unclear", raw, op)
		}
	}
}
