package session

import "testing"

func ticksFor(m *silenceMonitor, n int, hasSpeech bool) SilenceEvent {
	last := SilenceNone
	for i := 0; i < n; i++ {
		if ev := m.Tick(hasSpeech); ev != SilenceNone {
			last = ev
		}
	}
	return last
}

func TestSilenceWarnAfterQuietWindow(t *testing.T) {
	m := newSilenceMonitor()

	if ev := ticksFor(m, m.warnAt-1, false); ev != SilenceNone {
		t.Fatalf("event before window filled: %v", ev)
	}
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("event = %v, want SilenceWarn", ev)
	}
	// No repeat warning while still warned.
	if ev := m.Tick(false); ev != SilenceNone {
		t.Fatalf("event = %v, want SilenceNone", ev)
	}
}

func TestSilenceWarnClearsWithHysteresis(t *testing.T) {
	m := newSilenceMonitor()
	ticksFor(m, m.warnAt, false)

	// A single speech tick is under the clear threshold.
	if ev := m.Tick(true); ev == SilenceWarnClear {
		t.Fatal("warning cleared too eagerly")
	}
	if ev := ticksFor(m, m.warnAt, true); ev != SilenceWarnClear {
		t.Fatalf("event = %v, want SilenceWarnClear", ev)
	}
}

func TestSilenceAutoCloseAfterLongQuiet(t *testing.T) {
	m := newSilenceMonitor()

	if ev := ticksFor(m, m.windowSz-1, false); ev == SilenceAutoClose {
		t.Fatal("auto-close before the long window filled")
	}
	if ev := m.Tick(false); ev != SilenceAutoClose {
		t.Fatalf("event = %v, want SilenceAutoClose", ev)
	}
}

func TestSpeechPreventsAutoClose(t *testing.T) {
	m := newSilenceMonitor()

	// Alternate speech in above the minimum ratio.
	for i := 0; i < m.windowSz*2; i++ {
		if ev := m.Tick(i%4 == 0); ev == SilenceAutoClose {
			t.Fatalf("auto-closed at tick %d despite regular speech", i)
		}
	}
}
