package interpret

import (
	"context"
	"testing"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		message    string
		status     string
		remarks    string
		confidence int
	}{
		{"OK", StatusOK, "", 95},
		{"ok", StatusOK, "", 95},
		{"okay", StatusOK, "", 95},
		{"ok all good", StatusOK, "", 95},
		{"NOK", StatusNOK, DefaultNOKRemarks, 95},
		{"NOK - oil leaking", StatusNOK, "oil leaking", 95},
		{"nok: belt frayed", StatusNOK, "belt frayed", 95},
		{"yes", StatusOK, "", 80},
		{"y", StatusOK, "", 80},
		{"all done", StatusOK, "", 80},
		{"task complete", StatusOK, "", 80},
		{"looks good", StatusOK, "", 80},
		{"no", StatusNOK, "no", 75},
		{"n", StatusNOK, "n", 75},
		{"broken belt", StatusNOK, "broken belt", 75},
		{"there is a problem", StatusNOK, "there is a problem", 75},
		{"it did not start", StatusNOK, "it did not start", 75},
		{"maybe", StatusNOK, "maybe", 40},
		{"", StatusNOK, "", 40},
		{"🤷", StatusNOK, "🤷", 40},
	}
	for _, tt := range tests {
		got := Keywords(tt.message)
		if got.Status != tt.status {
			t.Errorf("Keywords(%q).Status = %q, want %q", tt.message, got.Status, tt.status)
		}
		if got.Remarks != tt.remarks {
			t.Errorf("Keywords(%q).Remarks = %q, want %q", tt.message, got.Remarks, tt.remarks)
		}
		if got.Confidence != tt.confidence {
			t.Errorf("Keywords(%q).Confidence = %d, want %d", tt.message, got.Confidence, tt.confidence)
		}
	}
}

func TestKeywords_Deterministic(t *testing.T) {
	first := Keywords("belt looks worn")
	for i := 0; i < 5; i++ {
		got := Keywords("belt looks worn")
		if *got != *first {
			t.Fatalf("run %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestFallback_NeverErrors(t *testing.T) {
	resp, err := Fallback{}.Interpret(context.Background(), Request{Message: "anything at all"})
	if err != nil {
		t.Fatalf("fallback returned error: %v", err)
	}
	if resp == nil {
		t.Fatal("fallback returned nil response")
	}
}
