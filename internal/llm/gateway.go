package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

// FailureSentinel is what callers see when the backend could not answer.
const FailureSentinel = "Sorry, something went wrong."

// AIGateway is the prompt-in, text-out contract every caller depends on.
type AIGateway interface {
	Generate(ctx context.Context, prompt string) string
}

var _ AIGateway = (*Gateway)(nil)

// Gateway wraps a Generator with a per-call timeout and the failure sentinel.
type Gateway struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

func NewGateway(generator Generator, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{generator: generator, timeout: timeout, logger: logger}
}

// Generate never fails: errors, timeouts and empty answers all become FailureSentinel.
func (g *Gateway) Generate(ctx context.Context, prompt string) string {
	ctx, span := otel.Tracer("AIGateway").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("llm.model", g.generator.Model()),
		attribute.Int("llm.prompt_length", len(prompt)),
	))
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.generator.Generate(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "AI generation failed",
			slog.String("model", g.generator.Model()),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		observability.AIFailures.WithLabelValues(g.generator.Model()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return FailureSentinel
	}

	g.logger.DebugContext(ctx, "AI generation completed",
		slog.String("model", g.generator.Model()),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("response_length", len(text)))
	span.SetStatus(codes.Ok, "")
	return text
}
