package hotkey

import "sync"

// Manager owns the live shortcut registration and swaps it when the
// binding changes in settings. Callbacks fire on press and release.
type Manager struct {
	newHotkey func(Binding) (Hotkey, error)
	onDown    func()
	onUp      func()

	mu      sync.Mutex
	current Hotkey
	stop    chan struct{}
}

func NewManager(onDown, onUp func()) *Manager {
	return &Manager{
		newHotkey: New,
		onDown:    onDown,
		onUp:      onUp,
	}
}

// Rebind replaces the active shortcut. An empty binding just
// unregisters the old one, leaving recording reachable only through
// the bridge.
func (m *Manager) Rebind(b Binding) error {
	if err := b.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbindLocked()

	if b.Empty() {
		return nil
	}

	hk, err := m.newHotkey(b)
	if err != nil {
		return err
	}
	if err := hk.Register(); err != nil {
		return err
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-hk.Keydown():
				m.onDown()
			case <-hk.Keyup():
				m.onUp()
			case <-stop:
				return
			}
		}
	}()

	m.current = hk
	m.stop = stop
	return nil
}

func (m *Manager) Bound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unbindLocked()
}

func (m *Manager) unbindLocked() {
	if m.current == nil {
		return
	}
	close(m.stop)
	m.current.Unregister()
	m.current = nil
	m.stop = nil
}
