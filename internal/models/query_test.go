package models

import (
	"testing"
)

func TestRetrieveQuery_Validate(t *testing.T) {
	half := 0.5
	tooHigh := 1.5
	tests := []struct {
		name    string
		query   *RetrieveQuery
		wantErr bool
		wantK   int
		wantTh  float64
	}{
		{"empty query", &RetrieveQuery{Query: "  "}, true, 0, 0},
		{"defaults applied", &RetrieveQuery{Query: "notice"}, false, 30, 0.42},
		{"explicit values kept", &RetrieveQuery{Query: "notice", K: 5, ScoreThreshold: &half}, false, 5, 0.5},
		{"caps k", &RetrieveQuery{Query: "notice", K: 500}, false, MaxRetrieveK, 0.42},
		{"threshold out of range", &RetrieveQuery{Query: "notice", ScoreThreshold: &tooHigh}, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(30, 0.42)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.query.K != tt.wantK {
				t.Errorf("K = %d, want %d", tt.query.K, tt.wantK)
			}
			if *tt.query.ScoreThreshold != tt.wantTh {
				t.Errorf("ScoreThreshold = %v, want %v", *tt.query.ScoreThreshold, tt.wantTh)
			}
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	r := &ChatRequest{Question: "  who attends ARD meetings? "}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Question != "who attends ARD meetings?" {
		t.Errorf("question not trimmed: %q", r.Question)
	}
	if err := (&ChatRequest{}).Validate(); err == nil {
		t.Error("expected error for empty question")
	}
}
