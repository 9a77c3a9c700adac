package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/callscore/internal/domain/ai"
	domain "github.com/bryanwahyu/callscore/internal/domain/analysis"
	"github.com/bryanwahyu/callscore/internal/domain/calls"
	"github.com/bryanwahyu/callscore/internal/infra/logging"
	"github.com/bryanwahyu/callscore/internal/middleware"
)

// RequestBuilder turns a transcript into an evaluation request.
type RequestBuilder interface {
	Build(transcript string) ai.Request
}

// Service runs one evaluation: build request, call the model, parse the reply.
// Service is safe for concurrent use.
type Service struct {
	client  ai.Client
	builder RequestBuilder
	metrics *middleware.Metrics
}

func NewService(client ai.Client, builder RequestBuilder, metrics *middleware.Metrics) *Service {
	if metrics == nil {
		metrics = middleware.DefaultMetrics
	}
	return &Service{client: client, builder: builder, metrics: metrics}
}

// Analyze always returns a structurally valid result. A failed call yields
// the zero-score error result; an unparseable reply yields the degraded one.
func (s *Service) Analyze(ctx context.Context, transcript calls.NormalizedTranscript) domain.AnalysisResult {
	logger := logging.FromContext(ctx)

	req := s.builder.Build(transcript.String())

	start := time.Now()
	reply, err := s.client.Complete(ctx, req)
	s.metrics.ObserveStage("evaluate", start)
	if err != nil {
		s.metrics.EvaluationErrors.Inc()
		logger.Error().Err(err).
			Bool("quota_exceeded", errors.Is(err, ai.ErrQuotaExceeded)).
			Msg("evaluation call failed")
		return domain.FailedResult(err)
	}

	result := domain.ParseResponse(reply)
	if result.IsDegraded() {
		s.metrics.DegradedReplies.Inc()
		logger.Warn().Int("reply_len", len(reply)).Msg("evaluation reply not parseable, using degraded result")
	}
	return result
}
