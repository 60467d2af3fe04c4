package loop

import (
	"errors"
	"fmt"
	"testing"

	"vecna/internal/session"
	"vecna/pkg/stt"
)

func TestExitMatcher(t *testing.T) {
	m := NewExitMatcher()

	tests := map[string]bool{
		"please stop now":         true,
		"EXIT":                    true,
		"exit.":                   true,
		"time to shut down":       true,
		"export the file":         false,
		"nonstop":                 false,
		"exiting":                 false,
		"shut the window down":    false,
		"":                        false,
		"what's the weather like": false,
	}

	for in, want := range tests {
		if got := m.Match(in); got != want {
			t.Errorf("Match(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExitMatcherCustomKeywords(t *testing.T) {
	m := NewExitMatcher("Go to sleep", "  ")
	if !m.Match("vecna, go to sleep") {
		t.Fatalf("phrase not matched")
	}
	if m.Match("stop") {
		t.Fatalf("defaults must not apply when keywords are given")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{stt.ErrNoSpeech, KindSilent},
		{fmt.Errorf("transcribe: %w", stt.ErrNoSpeech), KindSilent},
		{fmt.Errorf("transcribe: %w", stt.ErrServiceUnreachable), KindReported},
		{fmt.Errorf("converse: %w", session.ErrAgentUnavailable), KindReported},
		{errors.New("boom"), KindUnclassified},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
