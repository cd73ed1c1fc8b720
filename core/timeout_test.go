package core

import (
	"testing"
	"time"
)

func TestTimeoutPolicy_Limit(t *testing.T) {
	p := DefaultTimeoutPolicy()

	if got := p.Limit(PhaseAnalyzing); got != p.NamingTimeout {
		t.Fatalf("analyzing should share the naming limit, got %s", got)
	}
	if got := p.Limit(PhaseNaming); got != 60*time.Second {
		t.Fatalf("naming limit: got %s", got)
	}
	if got := p.Limit(PhasePlaying); got != 120*time.Second {
		t.Fatalf("playing limit: got %s", got)
	}
	if got := p.Limit(PhaseGuessVerify); got != 120*time.Second {
		t.Fatalf("guess_verify limit: got %s", got)
	}
	for _, phase := range []Phase{PhaseCompleted, PhaseExpired, PhaseCancelled} {
		if got := p.Limit(phase); got != 0 {
			t.Fatalf("terminal phase %s should have no limit, got %s", phase, got)
		}
	}
}

func TestTimeoutPolicy_Expired(t *testing.T) {
	p := DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if p.Expired(PhaseNaming, base, base.Add(60*time.Second)) {
		t.Fatal("exactly at the limit is not expired")
	}
	if !p.Expired(PhaseNaming, base, base.Add(61*time.Second)) {
		t.Fatal("one second past the limit is expired")
	}
	if p.Expired(PhaseCompleted, base, base.Add(time.Hour)) {
		t.Fatal("terminal phases never expire")
	}
}

func TestTimeoutPolicy_Removable(t *testing.T) {
	p := DefaultTimeoutPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if p.Removable(PhasePlaying, base, base.Add(time.Hour)) {
		t.Fatal("non-terminal sessions are never removable")
	}
	if p.Removable(PhaseCompleted, base, base.Add(300*time.Second)) {
		t.Fatal("inside the retention window is not removable")
	}
	if !p.Removable(PhaseCompleted, base, base.Add(301*time.Second)) {
		t.Fatal("past the retention window is removable")
	}
}
