package calls

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bryanwahyu/callscore/internal/application"
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	domain "github.com/bryanwahyu/callscore/internal/domain/calls"
	"github.com/bryanwahyu/callscore/internal/domain/report"
	"github.com/bryanwahyu/callscore/internal/domain/runerrors"
	"github.com/bryanwahyu/callscore/internal/middleware"
	"github.com/bryanwahyu/callscore/internal/worker"
)

type fakeAnalyzer struct {
	result analysis.AnalysisResult
	got    domain.NormalizedTranscript
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, t domain.NormalizedTranscript) analysis.AnalysisResult {
	f.calls++
	f.got = t
	return f.result
}

type fakeRenderer struct {
	err  error
	docs []report.Document
}

func (f *fakeRenderer) Render(_ context.Context, doc report.Document, path string) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return os.WriteFile(path, []byte("%PDF-fake"), 0o644)
}

type fakeMailer struct {
	err  error
	sent []report.Mail
}

func (f *fakeMailer) Send(_ context.Context, m report.Mail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeStore struct {
	err  error
	keys []string
}

func (f *fakeStore) Upload(_ context.Context, _ string, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "http://minio/reports/" + key, nil
}

func (f *fakeStore) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := f.Upload(ctx, localPath, key)
	if err != nil {
		return "", err
	}
	return url, os.Remove(localPath)
}

type fakeErrors struct {
	mu    sync.Mutex
	saved []*runerrors.RunError
}

func (f *fakeErrors) Save(_ context.Context, e *runerrors.RunError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeErrors) ListByReport(_ context.Context, reportID string, _ int) ([]*runerrors.RunError, error) {
	var out []*runerrors.RunError
	for _, e := range f.saved {
		if e.ReportID == reportID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeErrors) stages() []runerrors.Stage {
	var out []runerrors.Stage
	for _, e := range f.saved {
		out = append(out, e.Stage)
	}
	return out
}

type fakeNotifier struct {
	completed []any
	failed    []any
}

func (f *fakeNotifier) PublishCompleted(_ context.Context, _ string, ev any) error {
	f.completed = append(f.completed, ev)
	return nil
}

func (f *fakeNotifier) PublishFailed(_ context.Context, _ string, ev any) error {
	f.failed = append(f.failed, ev)
	return nil
}

type recordingQueue struct {
	ids   []string
	tasks []worker.Task
	err   error
}

func (q *recordingQueue) SubmitWithID(id string, t worker.Task) (worker.Handle, error) {
	if q.err != nil {
		return worker.Handle{ID: id}, q.err
	}
	q.ids = append(q.ids, id)
	q.tasks = append(q.tasks, t)
	return worker.Handle{ID: id}, nil
}

type fixture struct {
	svc      *Service
	analyzer *fakeAnalyzer
	renderer *fakeRenderer
	mailer   *fakeMailer
	store    *fakeStore
	errs     *fakeErrors
	notifier *fakeNotifier
	queue    *recordingQueue
	metrics  *middleware.Metrics
}

func newFixture(t *testing.T, result analysis.AnalysisResult) *fixture {
	t.Helper()
	f := &fixture{
		analyzer: &fakeAnalyzer{result: result},
		renderer: &fakeRenderer{},
		mailer:   &fakeMailer{},
		store:    &fakeStore{},
		errs:     &fakeErrors{},
		notifier: &fakeNotifier{},
		queue:    &recordingQueue{},
		metrics:  middleware.NewMetrics(prometheus.NewRegistry()),
	}
	f.svc = &Service{
		Analyzer:  f.analyzer,
		Rubric:    analysis.DefaultRubric(),
		Renderer:  f.renderer,
		Mailer:    f.mailer,
		Artifacts: f.store,
		Errors:    f.errs,
		Notifier:  f.notifier,
		Queue:     f.queue,
		Clock:     application.FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		Metrics:   f.metrics,
		OutputDir: t.TempDir(),
		Recipient: "coach@example.com",
	}
	return f
}

func goodResult() analysis.AnalysisResult {
	cats := map[analysis.CategoryKey]analysis.CategoryAnalysis{}
	for _, k := range analysis.AllKeys {
		cats[k] = analysis.CategoryAnalysis{Score: 8, Highlights: []string{"ok"}}
	}
	return analysis.AnalysisResult{
		OverallScore:    75,
		Categories:      cats,
		PaymentDetected: analysis.PaymentMonthly,
		Summary:         "Solid call",
	}
}

func turnsEvent() domain.CallEvent {
	return domain.CallEvent{
		MeetingTitle: "Discovery call",
		CreatedAt:    "2024-05-01T10:00:00Z",
		Transcript: domain.TurnsTranscript(
			domain.TranscriptEntry{SpeakerName: "Coach", Text: "What are your goals?", Timestamp: "00:00:01"},
			domain.TranscriptEntry{SpeakerName: "Client", Text: "Lose weight.", Timestamp: "00:00:05"},
		),
	}
}

func TestSubmit_NoTranscriptIsNeverStarted(t *testing.T) {
	f := newFixture(t, goodResult())

	for _, ev := range []domain.CallEvent{
		{MeetingTitle: "x"},
		{MeetingTitle: "x", Transcript: domain.TextTranscript("")},
		{MeetingTitle: "x", Transcript: domain.TurnsTranscript()},
	} {
		if _, err := f.svc.Submit(ev); !errors.Is(err, ErrNoTranscript) {
			t.Errorf("expected ErrNoTranscript, got %v", err)
		}
	}
	if len(f.queue.tasks) != 0 {
		t.Errorf("expected no queued tasks, got %d", len(f.queue.tasks))
	}
	if f.analyzer.calls != 0 || len(f.renderer.docs) != 0 {
		t.Error("pipeline must not run without a transcript")
	}
}

func TestSubmit_QueuesAndReturnsImmediately(t *testing.T) {
	f := newFixture(t, goodResult())

	id, err := f.svc.Submit(turnsEvent())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" || len(f.queue.ids) != 1 || f.queue.ids[0] != id {
		t.Fatalf("expected one queued task with id %q, got %v", id, f.queue.ids)
	}
	if f.analyzer.calls != 0 {
		t.Error("analysis must not run on the submitting goroutine")
	}
	if v := testutil.ToFloat64(f.metrics.RunsQueued); v != 1 {
		t.Errorf("expected 1 queued run, got %v", v)
	}

	f.queue.tasks[0](context.Background())
	if f.analyzer.calls != 1 || len(f.mailer.sent) != 1 {
		t.Error("expected the queued task to run the pipeline")
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	f := newFixture(t, goodResult())
	f.queue.err = worker.ErrQueueFull

	if _, err := f.svc.Submit(turnsEvent()); !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if v := testutil.ToFloat64(f.metrics.RunsRejected); v != 1 {
		t.Errorf("expected 1 rejected run, got %v", v)
	}
}

func TestRun_Completed(t *testing.T) {
	f := newFixture(t, goodResult())

	res := f.svc.Run(context.Background(), "r-1", turnsEvent())

	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Status, res.Error)
	}
	if f.analyzer.got != "[00:00:01] Coach: What are your goals?\n[00:00:05] Client: Lose weight." {
		t.Errorf("unexpected normalized transcript %q", f.analyzer.got)
	}
	if res.WeightedScore != 80.0 || res.ReportedScore != 75 {
		t.Errorf("unexpected scores %v / %d", res.WeightedScore, res.ReportedScore)
	}
	if want := "sales_analysis_20240501_120000_r-1.pdf"; filepath.Base(res.ArtifactPath) != want {
		t.Errorf("expected artifact %s, got %s", want, res.ArtifactPath)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].Subject != "Sales Call Analysis Report - Discovery call" {
		t.Errorf("unexpected mail %+v", f.mailer.sent)
	}
	if len(f.store.keys) != 1 || f.store.keys[0] != "reports/2024/05/sales_analysis_20240501_120000_r-1.pdf" {
		t.Errorf("unexpected archive keys %v", f.store.keys)
	}
	if _, err := os.Stat(res.ArtifactPath); !os.IsNotExist(err) {
		t.Error("expected local artifact to be cleaned up after archiving")
	}
	if len(f.errs.saved) != 0 {
		t.Errorf("expected no run errors, got %v", f.errs.stages())
	}
	if len(f.notifier.completed) != 1 || len(f.notifier.failed) != 0 {
		t.Error("expected one completed event")
	}
	if v := testutil.ToFloat64(f.metrics.RunsCompleted.WithLabelValues(StatusCompleted)); v != 1 {
		t.Errorf("expected 1 completed run, got %v", v)
	}
}

func TestRun_KeepLocal(t *testing.T) {
	f := newFixture(t, goodResult())
	f.svc.KeepLocal = true

	res := f.svc.Run(context.Background(), "r-keep", turnsEvent())
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Errorf("expected local artifact to be kept: %v", err)
	}
}

func TestRun_DefaultsMissingEventFields(t *testing.T) {
	f := newFixture(t, goodResult())

	res := f.svc.Run(context.Background(), "r-2", domain.CallEvent{Transcript: domain.TextTranscript("raw text")})

	if res.MeetingTitle != domain.DefaultMeetingTitle {
		t.Errorf("expected default title, got %q", res.MeetingTitle)
	}
	kv := f.renderer.docs[0].Blocks[1].Rows
	if kv[1][1] != "2024-05-01T12:00:00Z" {
		t.Errorf("expected created_at to default to now, got %q", kv[1][1])
	}
	if f.analyzer.got != "raw text" {
		t.Errorf("expected raw text unchanged, got %q", f.analyzer.got)
	}
}

func TestRun_DegradedIsAuditedButCompletes(t *testing.T) {
	f := newFixture(t, analysis.Degraded("Sorry, I cannot comply."))

	res := f.svc.Run(context.Background(), "r-3", turnsEvent())

	if res.Status != StatusCompleted || !res.Degraded {
		t.Fatalf("expected degraded completion, got %+v", res)
	}
	if got := f.errs.stages(); len(got) != 1 || got[0] != runerrors.StageParse {
		t.Fatalf("expected a parse audit entry, got %v", got)
	}
	if !strings.Contains(f.errs.saved[0].DetailsJSON, "Sorry, I cannot comply.") {
		t.Errorf("expected raw reply in details, got %s", f.errs.saved[0].DetailsJSON)
	}
}

func TestRun_EvaluationFailureStillRenders(t *testing.T) {
	f := newFixture(t, analysis.FailedResult(errors.New("timeout")))

	res := f.svc.Run(context.Background(), "r-4", turnsEvent())

	if res.Status != StatusCompleted {
		t.Fatalf("expected report to be produced, got %s", res.Status)
	}
	if res.WeightedScore != 0 {
		t.Errorf("expected zero weighted score, got %v", res.WeightedScore)
	}
	if got := f.errs.stages(); len(got) != 1 || got[0] != runerrors.StageEvaluate {
		t.Errorf("expected evaluate audit entry, got %v", got)
	}
	if len(f.renderer.docs) != 1 {
		t.Error("expected a rendered report")
	}
}

func TestRun_RenderFailureTerminates(t *testing.T) {
	f := newFixture(t, goodResult())
	f.renderer.err = errors.New("disk full")

	res := f.svc.Run(context.Background(), "r-5", turnsEvent())

	if res.Status != StatusFailed || !strings.Contains(res.Error, "disk full") {
		t.Fatalf("expected failed run, got %+v", res)
	}
	if len(f.mailer.sent) != 0 || len(f.store.keys) != 0 {
		t.Error("nothing may be delivered after a render failure")
	}
	if got := f.errs.stages(); len(got) != 1 || got[0] != runerrors.StageRender {
		t.Errorf("expected render audit entry, got %v", got)
	}
	if len(f.notifier.failed) != 1 {
		t.Error("expected one failed event")
	}
}

func TestRun_MailFailureTerminates(t *testing.T) {
	f := newFixture(t, goodResult())
	f.mailer.err = errors.New("auth failed")

	res := f.svc.Run(context.Background(), "r-6", turnsEvent())

	if res.Status != StatusFailed {
		t.Fatalf("expected failed run, got %s", res.Status)
	}
	if got := f.errs.stages(); len(got) != 1 || got[0] != runerrors.StageMail {
		t.Errorf("expected mail audit entry, got %v", got)
	}
	if len(f.store.keys) != 0 {
		t.Error("archive must not run after a mail failure")
	}
}

func TestRun_UploadFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, goodResult())
	f.store.err = errors.New("bucket gone")

	res := f.svc.Run(context.Background(), "r-7", turnsEvent())

	if res.Status != StatusCompleted || res.ArtifactURL != "" {
		t.Fatalf("expected completion without URL, got %+v", res)
	}
	if got := f.errs.stages(); len(got) != 1 || got[0] != runerrors.StageUpload {
		t.Errorf("expected upload audit entry, got %v", got)
	}
}

func TestRun_OptionalCollaboratorsMayBeNil(t *testing.T) {
	f := newFixture(t, goodResult())
	f.svc.Mailer = nil
	f.svc.Artifacts = nil
	f.svc.Errors = nil
	f.svc.Notifier = nil

	res := f.svc.Run(context.Background(), "r-8", turnsEvent())
	if res.Status != StatusCompleted {
		t.Fatalf("expected completion, got %+v", res)
	}
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Errorf("expected local artifact: %v", err)
	}
	list, err := f.svc.ListErrors(context.Background(), "r-8", 10)
	if err != nil || len(list) != 0 {
		t.Errorf("expected empty error list, got %v / %v", list, err)
	}
}

func TestArtifactName_Unique(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if ArtifactName(now, "a") == ArtifactName(now, "b") {
		t.Error("artifact names collide within the same second")
	}
}

func TestRecordPanic(t *testing.T) {
	f := newFixture(t, goodResult())
	f.svc.RecordPanic("r-9", "boom")
	list, _ := f.svc.ListErrors(context.Background(), "r-9", 10)
	if len(list) != 1 || list[0].Stage != runerrors.StagePanic || list[0].Message != "boom" {
		t.Errorf("unexpected panic audit %+v", list)
	}
}
