package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/callscore/internal/application"
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	domain "github.com/bryanwahyu/callscore/internal/domain/calls"
	"github.com/bryanwahyu/callscore/internal/domain/report"
	"github.com/bryanwahyu/callscore/internal/domain/runerrors"
	"github.com/bryanwahyu/callscore/internal/infra/logging"
	"github.com/bryanwahyu/callscore/internal/middleware"
	"github.com/bryanwahyu/callscore/internal/worker"
)

// ErrNoTranscript is returned by Submit when the event has nothing to analyze.
var ErrNoTranscript = errors.New("event has no transcript")

// Analyzer runs the evaluation for a normalized transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript domain.NormalizedTranscript) analysis.AnalysisResult
}

// Queue accepts background work without blocking the caller.
type Queue interface {
	SubmitWithID(id string, t worker.Task) (worker.Handle, error)
}

// Notifier publishes run outcomes (optional).
type Notifier interface {
	PublishCompleted(ctx context.Context, key string, event any) error
	PublishFailed(ctx context.Context, key string, event any) error
}

// Service implements the call analysis pipeline.
// Service is designed to be used concurrently; runs share nothing but OutputDir.
type Service struct {
	Analyzer  Analyzer
	Rubric    analysis.Rubric
	Renderer  report.Renderer
	Mailer    report.Mailer        // nil disables delivery
	Artifacts report.ArtifactStore // nil disables archiving
	Errors    runerrors.Repository // nil disables the failure audit
	Notifier  Notifier             // nil disables events
	Queue     Queue
	Clock     application.Clock
	Metrics   *middleware.Metrics

	OutputDir string
	Recipient string
	KeepLocal bool
}

// RunResult is what one finished pipeline run produced.
type RunResult struct {
	ReportID      string                  `json:"report_id"`
	MeetingTitle  string                  `json:"meeting_title"`
	Status        string                  `json:"status"`
	WeightedScore float64                 `json:"weighted_score"`
	ReportedScore int                     `json:"reported_score"`
	Degraded      bool                    `json:"degraded"`
	ArtifactPath  string                  `json:"artifact_path,omitempty"`
	ArtifactURL   string                  `json:"artifact_url,omitempty"`
	Error         string                  `json:"error,omitempty"`
	FinishedAt    time.Time               `json:"finished_at"`
	Analysis      analysis.AnalysisResult `json:"-"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	artifactTimeLayout = "20060102_150405"
)

// stageError tags a failure with the stage it came from.
type stageError struct {
	stage runerrors.Stage
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

//
// ==== USE CASES ====
//

// Submit schedules a pipeline run and returns its report id immediately.
// Events without a transcript are not scheduled.
func (s *Service) Submit(ev domain.CallEvent) (string, error) {
	if !ev.HasTranscript() {
		return "", ErrNoTranscript
	}
	ev = withDefaults(ev, s.now())
	id := uuid.NewString()

	if _, err := s.Queue.SubmitWithID(id, func(ctx context.Context) {
		s.Run(ctx, id, ev)
	}); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			s.metrics().RunsRejected.Inc()
		}
		return id, err
	}
	s.metrics().RunsQueued.Inc()
	return id, nil
}

// AnalyzeNow normalizes and evaluates a transcript synchronously.
func (s *Service) AnalyzeNow(ctx context.Context, t *domain.Transcript) analysis.AnalysisResult {
	return s.Analyzer.Analyze(ctx, domain.Normalize(t))
}

// Run executes the full pipeline for one event. Failures are logged,
// counted, audited and published; nothing is returned to the submitter.
func (s *Service) Run(ctx context.Context, reportID string, ev domain.CallEvent) RunResult {
	logger := logging.WithReport(reportID, ev.MeetingTitle)
	ctx = logger.WithContext(ctx)

	m := s.metrics()
	m.RunsRunning.Inc()
	defer m.RunsRunning.Dec()

	logger.Info().Msg("starting analysis")
	res, err := s.Process(ctx, reportID, ev)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		m.RunsCompleted.WithLabelValues(StatusFailed).Inc()
		logger.Error().Err(err).Msg("analysis run failed")

		stage := runerrors.StageRender
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		s.recordError(ctx, logger, reportID, ev.MeetingTitle, stage, err.Error(), nil)
		s.publish(ctx, logger, res)
		return res
	}

	res.Status = StatusCompleted
	m.RunsCompleted.WithLabelValues(StatusCompleted).Inc()
	m.WeightedScore.Observe(res.WeightedScore)
	logger.Info().
		Float64("weighted_score", res.WeightedScore).
		Bool("degraded", res.Degraded).
		Str("artifact", res.ArtifactPath).
		Msg("analysis complete")
	s.publish(ctx, logger, res)
	return res
}

// Process runs normalize → analyze → assemble → render → mail → archive and
// returns the first render or mail failure.
func (s *Service) Process(ctx context.Context, reportID string, ev domain.CallEvent) (RunResult, error) {
	logger := logging.FromContext(ctx)
	ev = withDefaults(ev, s.now())
	m := s.metrics()

	res := RunResult{ReportID: reportID, MeetingTitle: ev.MeetingTitle}

	transcript := domain.Normalize(ev.Transcript)

	result := s.Analyzer.Analyze(ctx, transcript)
	res.Analysis = result
	res.ReportedScore = int(result.OverallScore)
	res.Degraded = result.IsDegraded()
	if result.Failed() {
		s.recordError(ctx, *logger, reportID, ev.MeetingTitle, runerrors.StageEvaluate, result.Error, nil)
	}
	if result.IsDegraded() {
		s.recordError(ctx, *logger, reportID, ev.MeetingTitle, runerrors.StageParse,
			"evaluation reply could not be parsed", map[string]string{"raw_analysis": *result.RawAnalysis})
	}

	now := s.now()
	res.WeightedScore = analysis.ComputeWeightedScore(s.Rubric, result).Total
	doc := report.Assemble(s.Rubric, report.Meta{
		MeetingTitle: ev.MeetingTitle,
		CreatedAt:    ev.CreatedAt,
		GeneratedAt:  now,
	}, transcript.String(), result)

	logger.Info().Msg("generating PDF report")
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return res, &stageError{runerrors.StageRender, err}
	}
	path := filepath.Join(s.OutputDir, ArtifactName(now, reportID))
	start := time.Now()
	if err := s.Renderer.Render(ctx, doc, path); err != nil {
		return res, &stageError{runerrors.StageRender, err}
	}
	m.ObserveStage("render", start)
	res.ArtifactPath = path

	if s.Mailer != nil && s.Recipient != "" {
		logger.Info().Str("recipient", s.Recipient).Msg("sending email report")
		start = time.Now()
		if err := s.Mailer.Send(ctx, report.NewReportMail(s.Recipient, ev.MeetingTitle, path, now)); err != nil {
			return res, &stageError{runerrors.StageMail, err}
		}
		m.ObserveStage("mail", start)
	}

	if s.Artifacts != nil {
		key := fmt.Sprintf("reports/%s/%s", now.Format("2006/01"), filepath.Base(path))
		start = time.Now()
		var (
			url string
			err error
		)
		if s.KeepLocal {
			url, err = s.Artifacts.Upload(ctx, path, key)
		} else {
			url, err = s.Artifacts.UploadAndCleanup(ctx, path, key)
		}
		if err != nil {
			// archive is best effort; the report was already delivered
			logger.Warn().Err(err).Msg("report archive upload failed")
			s.recordError(ctx, *logger, reportID, ev.MeetingTitle, runerrors.StageUpload, err.Error(), nil)
		} else {
			m.ObserveStage("upload", start)
			res.ArtifactURL = url
		}
	}

	res.FinishedAt = s.now()
	return res, nil
}

// ArtifactName is unique per run even when runs finish in the same second.
func ArtifactName(now time.Time, reportID string) string {
	return fmt.Sprintf("sales_analysis_%s_%s.pdf", now.Format(artifactTimeLayout), reportID)
}

// RecordPanic audits a run whose task panicked.
func (s *Service) RecordPanic(reportID string, recovered any) {
	ctx := context.Background()
	logger := logging.WithReport(reportID, "")
	s.metrics().RunsCompleted.WithLabelValues(StatusFailed).Inc()
	s.recordError(ctx, logger, reportID, "", runerrors.StagePanic, fmt.Sprint(recovered), nil)
}

// ListErrors returns audited failures of one run.
func (s *Service) ListErrors(ctx context.Context, reportID string, limit int) ([]*runerrors.RunError, error) {
	if s.Errors == nil {
		return []*runerrors.RunError{}, nil
	}
	return s.Errors.ListByReport(ctx, reportID, limit)
}

// helper

func (s *Service) recordError(ctx context.Context, logger zerolog.Logger, reportID, meetingTitle string, stage runerrors.Stage, msg string, details any) {
	if s.Errors == nil {
		return
	}
	e := &runerrors.RunError{
		ReportID:     reportID,
		MeetingTitle: meetingTitle,
		Stage:        stage,
		Message:      msg,
		CreatedAt:    s.now(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			e.DetailsJSON = string(b)
		}
	}
	if err := s.Errors.Save(ctx, e); err != nil {
		logger.Warn().Err(err).Str("stage", string(stage)).Msg("failed to record run error")
	}
}

func (s *Service) publish(ctx context.Context, logger zerolog.Logger, res RunResult) {
	if s.Notifier == nil {
		return
	}
	if res.FinishedAt.IsZero() {
		res.FinishedAt = s.now()
	}
	var err error
	if res.Status == StatusFailed {
		err = s.Notifier.PublishFailed(ctx, res.ReportID, res)
	} else {
		err = s.Notifier.PublishCompleted(ctx, res.ReportID, res)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to publish run event")
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) metrics() *middleware.Metrics {
	if s.Metrics == nil {
		return middleware.DefaultMetrics
	}
	return s.Metrics
}

func withDefaults(ev domain.CallEvent, now time.Time) domain.CallEvent {
	if ev.MeetingTitle == "" {
		ev.MeetingTitle = domain.DefaultMeetingTitle
	}
	if ev.CreatedAt == "" {
		ev.CreatedAt = now.Format(time.RFC3339)
	}
	return ev
}
