package debug

import "testing"

func TestVerboseToggle(t *testing.T) {
	SetVerbose(false)
	wasEnabled := Enabled()
	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled should be true after SetVerbose(true)")
	}
	SetVerbose(false)
	if Enabled() != wasEnabled {
		t.Error("Enabled should return to env-derived state")
	}
}

func TestQuietToggle(t *testing.T) {
	SetQuiet(true)
	if !IsQuiet() {
		t.Error("IsQuiet should be true")
	}
	SetQuiet(false)
	if IsQuiet() {
		t.Error("IsQuiet should be false")
	}
}
