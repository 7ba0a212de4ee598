package llm

import "context"

// FakeClient is a deterministic stand-in for Client used by ranker and
// adapter tests.
type FakeClient struct {
	Responses []string
	Err       error
	calls     int
	Prompts   []string
}

func (f *FakeClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	return f.Responses[idx], nil
}
