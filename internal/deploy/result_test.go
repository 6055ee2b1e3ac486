package deploy

import (
	"errors"
	"testing"
)

func TestResult_Failed(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"clean deploy", Result{Uploaded: 2}, false},
		{"all skipped", Result{Skipped: 3}, false},
		{"partial failure is not total failure", Result{Uploaded: 1, Errors: []string{"item x audio: gone"}}, false},
		{"nothing uploaded, errors present", Result{Errors: []string{"feed: disk full"}}, true},
		{"empty result", Result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Failed(); got != tt.want {
				t.Fatalf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResult_AppendError(t *testing.T) {
	var r Result
	r.appendError("item ep1 audio", errors.New("no such file"))
	if len(r.Errors) != 1 || r.Errors[0] != "item ep1 audio: no such file" {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
}
