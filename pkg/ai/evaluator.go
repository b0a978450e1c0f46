package ai

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single remote call. There are no retries.
const DefaultTimeout = 30 * time.Second

var (
	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of LLM evaluations by mode",
	}, []string{"mode"})

	evaluationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "evaluation_fallbacks_total",
		Help:      "Number of evaluations answered by the simulated evaluator",
	}, []string{"reason"})

	malformedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "malformed_responses_total",
		Help:      "Number of model replies missing the EVALUATION/SCORE markers",
	})
)

// EvaluatorConfig configures the evaluator.
type EvaluatorConfig struct {
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Evaluator grades free-text answers with a hosted model and falls back to Simulate.
// A nil generator leaves the evaluator permanently unconfigured.
type Evaluator struct {
	generator Generator
	timeout   time.Duration
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewEvaluator builds an evaluator around an optional generator.
func NewEvaluator(generator Generator, cfg EvaluatorConfig) *Evaluator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{
		generator: generator,
		timeout:   timeout,
		tracer:    otel.Tracer("github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"),
		logger:    cfg.Logger.With().Str("component", "llm_evaluator").Logger(),
	}
}

// Configured reports whether a remote generator is available.
func (e *Evaluator) Configured() bool {
	return e.generator != nil
}

// Model returns the generator name, or an empty string when unconfigured.
func (e *Evaluator) Model() string {
	if e.generator == nil {
		return ""
	}
	return e.generator.Name()
}

// Call performs one remote generation under the fixed timeout. It never returns an error;
// every failure, including cancellation of ctx, is reported as RemoteError.
func (e *Evaluator) Call(ctx context.Context, prompt string) RemoteResult {
	if e.generator == nil {
		return RemoteResult{Status: RemoteUnconfigured, Reason: "no api credential configured"}
	}

	ctx, span := e.tracer.Start(ctx, "ai.call", trace.WithAttributes(
		attribute.String("model", e.generator.Name()),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.generator.Generate(callCtx, prompt)
	if err == nil {
		err = callCtx.Err()
	}
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "remote call timed out after " + e.timeout.String()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return RemoteResult{Status: RemoteError, Reason: reason}
	}
	return RemoteResult{Status: RemoteSuccess, Text: text}
}

// Evaluate always yields an outcome: api mode on a successful call, simulated otherwise.
func (e *Evaluator) Evaluate(ctx context.Context, input EvaluationInput) EvaluationOutcome {
	start := time.Now()
	result := e.Call(ctx, BuildPrompt(input))

	var outcome EvaluationOutcome
	switch result.Status {
	case RemoteSuccess:
		evaluation, score, found := ParseResponse(result.Text)
		outcome = EvaluationOutcome{
			EvaluationText: evaluation,
			Score:          score,
			MaxScore:       ResolveMaxScore(input.GradingCriteria),
			Mode:           ModeAPI,
			MarkersFound:   found,
			Model:          e.generator.Name(),
		}
		if !found {
			malformedResponses.Inc()
			e.logger.Warn().Str("model", outcome.Model).Msg("model reply missing evaluation markers")
		}
	case RemoteError:
		e.logger.Warn().Str("reason", result.Reason).Msg("llm evaluation failed, using simulated evaluator")
		evaluationFallbacks.WithLabelValues(result.Status.String()).Inc()
		outcome = Simulate(input)
		outcome.FallbackReason = result.Reason
	default:
		evaluationFallbacks.WithLabelValues(result.Status.String()).Inc()
		outcome = Simulate(input)
		outcome.FallbackReason = result.Reason
	}

	evaluationDuration.WithLabelValues(string(outcome.Mode)).Observe(time.Since(start).Seconds())
	return outcome
}
