package ai

import "context"

// Mode identifies which path produced an evaluation.
type Mode string

const (
	ModeAPI       Mode = "api"
	ModeSimulated Mode = "simulated"
)

// RemoteStatus is the outcome class of a remote model call.
type RemoteStatus int

const (
	// RemoteSuccess carries the model's raw text.
	RemoteSuccess RemoteStatus = iota
	// RemoteError covers network, auth, quota, timeout and cancellation failures.
	RemoteError
	// RemoteUnconfigured means no credential was available; no call was attempted.
	RemoteUnconfigured
)

func (s RemoteStatus) String() string {
	switch s {
	case RemoteSuccess:
		return "success"
	case RemoteError:
		return "remote_error"
	case RemoteUnconfigured:
		return "unconfigured"
	default:
		return "unknown"
	}
}

// RemoteResult is the explicit result of one remote generation attempt.
type RemoteResult struct {
	Status RemoteStatus
	Text   string
	Reason string
}

// Generator produces free text from a prompt using a hosted model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// EvaluationInput contains the artefacts needed to evaluate a free-text answer.
type EvaluationInput struct {
	Question        string
	StudentAnswer   string
	ExpectedAnswer  string
	GradingCriteria string
}

// EvaluationOutcome is always returned by the evaluator, whatever happened remotely.
type EvaluationOutcome struct {
	EvaluationText string `json:"evaluation_text"`
	Score          int    `json:"score"`
	MaxScore       int    `json:"max_score"`
	Mode           Mode   `json:"mode"`
	// MarkersFound is false when an api-mode reply lacked the EVALUATION:/SCORE: sections.
	MarkersFound   bool   `json:"markers_found"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	Model          string `json:"model,omitempty"`
}

// Degraded reports whether the outcome came from an api reply that could not be parsed.
func (o EvaluationOutcome) Degraded() bool {
	return o.Mode == ModeAPI && !o.MarkersFound
}
