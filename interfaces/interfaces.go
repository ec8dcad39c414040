package interfaces

import "context"

// CommandRunner executes an external command and waits for it to exit. A nil
// error means the command exited with status zero. Implementations must honor
// context cancellation; the pipeline itself imposes no timeout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// CandidateMatcher extracts plausible signing-key strings from disassembly
// text. Implementations return unique qualifying literals; order carries no
// meaning since aggregation happens at a higher level.
type CandidateMatcher interface {
	Candidates(text string) []string
}

// PromptFunc asks the user for input and returns the raw response. It is
// injected into the extraction pipeline so interactive fallback can be
// disabled or faked.
type PromptFunc func(message string) (string, error)
