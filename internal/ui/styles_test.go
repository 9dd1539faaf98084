package ui

import "testing"

func TestSpeakerStyleStable(t *testing.T) {
	a := SpeakerStyle("speaker-1").GetForeground()
	b := SpeakerStyle("speaker-1").GetForeground()
	if a != b {
		t.Errorf("same id got %v and %v", a, b)
	}
}

func TestSpeakerStyleUnassigned(t *testing.T) {
	if SpeakerStyle("").GetForeground() != DimStyle.GetForeground() {
		t.Error("unassigned speakers should render dim")
	}
}
