// Package permissions answers whether the OS will let us capture the
// microphone and synthesize keystrokes. Only macOS gates these; other
// platforms report granted.
package permissions

type Status struct {
	Microphone    bool `json:"microphone"`
	Accessibility bool `json:"accessibility"`
}

func Check() Status {
	return Status{
		Microphone:    CheckMicrophone(),
		Accessibility: CheckAccessibility(),
	}
}
