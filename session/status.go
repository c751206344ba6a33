package session

// Status values mirror the UI's processing indicator. Transitions are
// published on the event bus in the order they happen.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRecording      Status = "recording"
	StatusTranscribing   Status = "transcribing"
	StatusThinkingAction Status = "thinking_action"
	StatusGeneratingText Status = "generating_text"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusError          Status = "error"
)
