package action

import "context"

// FakeEngine answers with canned values.
type FakeEngine struct {
	Action     bool
	Output     string
	IntentErr  error
	ProcessErr error
}

func (f *FakeEngine) Name() string { return "fake" }

func (f *FakeEngine) DetectIntent(_ context.Context, _ string) (bool, error) {
	return f.Action, f.IntentErr
}

func (f *FakeEngine) Generate(_ context.Context, _, _ string) (string, error) {
	return f.Output, f.ProcessErr
}

func (f *FakeEngine) Transform(_ context.Context, _, _ string) (string, error) {
	return f.Output, f.ProcessErr
}
