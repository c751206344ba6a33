package hotkey

import (
	"errors"
	"testing"
	"time"
)

func TestBindingValidate(t *testing.T) {
	valid := []Binding{
		{},
		{Key: "space", Modifier: "ctrl"},
		{Key: "space", Modifier: ""},
		{Key: "f5", Modifier: "shift"},
		{Key: "r", Modifier: "ctrl+shift"},
		{Key: "0"},
	}
	for _, b := range valid {
		if err := b.Validate(); err != nil {
			t.Errorf("Validate(%v) = %v", b, err)
		}
	}

	invalid := []Binding{
		{Key: "escape"},
		{Key: "f13"},
		{Key: "space", Modifier: "hyper"},
		{Key: "??"},
	}
	for _, b := range invalid {
		if err := b.Validate(); err == nil {
			t.Errorf("Validate(%v) accepted an invalid binding", b)
		}
	}
}

func TestBindingString(t *testing.T) {
	if got := (Binding{Key: "space", Modifier: "ctrl"}).String(); got != "ctrl+space" {
		t.Errorf("String() = %q", got)
	}
	if got := (Binding{}).String(); got != "(unbound)" {
		t.Errorf("String() = %q", got)
	}
}

func newFakeManager(onDown, onUp func()) (*Manager, *FakeHotkey) {
	fake := NewFakeHotkey()
	m := NewManager(onDown, onUp)
	m.newHotkey = func(Binding) (Hotkey, error) { return fake, nil }
	return m, fake
}

func TestManagerFiresCallbacks(t *testing.T) {
	downs := make(chan struct{}, 4)
	ups := make(chan struct{}, 4)
	m, fake := newFakeManager(
		func() { downs <- struct{}{} },
		func() { ups <- struct{}{} },
	)
	defer m.Close()

	if err := m.Rebind(Binding{Key: "space", Modifier: "ctrl"}); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if !fake.Registered {
		t.Fatal("hotkey not registered")
	}

	fake.SimKeydown()
	select {
	case <-downs:
	case <-time.After(time.Second):
		t.Fatal("keydown callback never fired")
	}

	fake.SimKeyup()
	select {
	case <-ups:
	case <-time.After(time.Second):
		t.Fatal("keyup callback never fired")
	}
}

func TestManagerEmptyBindingUnbinds(t *testing.T) {
	m, fake := newFakeManager(func() {}, func() {})
	defer m.Close()

	if err := m.Rebind(Binding{Key: "space"}); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if err := m.Rebind(Binding{}); err != nil {
		t.Fatalf("Rebind empty: %v", err)
	}
	if fake.Registered {
		t.Error("old hotkey still registered after unbind")
	}
	if m.Bound() {
		t.Error("manager reports bound after unbind")
	}
}

func TestManagerRebindReplacesOld(t *testing.T) {
	first := NewFakeHotkey()
	second := NewFakeHotkey()
	hotkeys := []*FakeHotkey{first, second}
	i := 0

	m := NewManager(func() {}, func() {})
	m.newHotkey = func(Binding) (Hotkey, error) {
		hk := hotkeys[i]
		i++
		return hk, nil
	}
	defer m.Close()

	if err := m.Rebind(Binding{Key: "space"}); err != nil {
		t.Fatalf("first Rebind: %v", err)
	}
	if err := m.Rebind(Binding{Key: "f5", Modifier: "shift"}); err != nil {
		t.Fatalf("second Rebind: %v", err)
	}
	if first.Registered {
		t.Error("first hotkey still registered")
	}
	if !second.Registered {
		t.Error("second hotkey not registered")
	}
}

func TestManagerRegisterFailure(t *testing.T) {
	fake := NewFakeHotkey()
	fake.RegErr = errors.New("grab failed")

	m := NewManager(func() {}, func() {})
	m.newHotkey = func(Binding) (Hotkey, error) { return fake, nil }
	defer m.Close()

	if err := m.Rebind(Binding{Key: "space"}); err == nil {
		t.Fatal("expected registration error")
	}
	if m.Bound() {
		t.Error("manager reports bound after failed registration")
	}
}
