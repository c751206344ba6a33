// Package hotkey binds the global record shortcut. Press starts a
// recording, release finalizes it. The binding comes from settings and
// can be swapped at runtime.
package hotkey

import "fmt"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Binding is the settings-level shortcut description: a key name plus
// an optional modifier ("ctrl", "shift" or "ctrl+shift"). An empty key
// means the shortcut is unbound.
type Binding struct {
	Key      string
	Modifier string
}

func (b Binding) Empty() bool { return b.Key == "" }

func (b Binding) String() string {
	if b.Empty() {
		return "(unbound)"
	}
	if b.Modifier == "" {
		return b.Key
	}
	return b.Modifier + "+" + b.Key
}

// Validate checks the binding against the portable key and modifier
// sets before it touches any platform API.
func (b Binding) Validate() error {
	if b.Empty() {
		return nil
	}
	if !knownKey(b.Key) {
		return fmt.Errorf("unknown key %q", b.Key)
	}
	switch b.Modifier {
	case "", "ctrl", "shift", "ctrl+shift":
		return nil
	}
	return fmt.Errorf("unsupported modifier %q", b.Modifier)
}

func knownKey(key string) bool {
	if key == "space" {
		return true
	}
	if len(key) == 1 {
		c := key[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	if len(key) >= 2 && key[0] == 'f' {
		switch key {
		case "f1", "f2", "f3", "f4", "f5", "f6",
			"f7", "f8", "f9", "f10", "f11", "f12":
			return true
		}
	}
	return false
}
