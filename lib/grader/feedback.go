package grader

import "github.com/database-playground/sqlgrader/lib/sqlrunner"

// Verdict is the grading result of one submission.
type Verdict string

const (
	VerdictCorrect         Verdict = "correct"
	VerdictIncorrect       Verdict = "incorrect"
	VerdictUnverifiable    Verdict = "unverifiable"
	VerdictExecutionFailed Verdict = "execution_failed"
)

// Message keys are resolved to text by the presentation layer.
const (
	MessageCorrect           = "feedback.correct"
	MessageIncorrect         = "feedback.incorrect"
	MessageVerificationError = "feedback.verification_error"
	MessageQueryFailed       = "feedback.query_failed"
)

// Feedback is what the user is told about a submission.
type Feedback struct {
	Verdict    Verdict   `json:"verdict"`
	IsCorrect  bool      `json:"is_correct"`
	MessageKey string    `json:"message_key"`
	Mismatch   *Mismatch `json:"mismatch,omitempty"`
	// Error is the engine's message, set for VerdictExecutionFailed only.
	Error string `json:"error,omitempty"`
}

// Resolve grades a successfully executed submission. Without a usable
// reference the verdict is Unverifiable, never Correct.
func Resolve(reference *sqlrunner.Outcome, user sqlrunner.Outcome) Feedback {
	if reference == nil || reference.Failed() {
		return Feedback{
			Verdict:    VerdictUnverifiable,
			MessageKey: MessageVerificationError,
		}
	}

	mismatch := Compare(user, *reference)
	if mismatch.Kind == MismatchNone {
		return Feedback{
			Verdict:    VerdictCorrect,
			IsCorrect:  true,
			MessageKey: MessageCorrect,
		}
	}

	return Feedback{
		Verdict:    VerdictIncorrect,
		MessageKey: MessageIncorrect,
		Mismatch:   &mismatch,
	}
}

// ExecutionFailed is the feedback for a submission the engine rejected.
// It bypasses Resolve entirely.
func ExecutionFailed(err *sqlrunner.QueryError) Feedback {
	return Feedback{
		Verdict:    VerdictExecutionFailed,
		MessageKey: MessageQueryFailed,
		Error:      err.Message(),
	}
}
