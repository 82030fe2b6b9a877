package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hstu-emis/admin-gateway/internal/models"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/export"
	"github.com/hstu-emis/admin-gateway/pkg/jobs"
	"github.com/hstu-emis/admin-gateway/pkg/storage"
)

type transcriptRenderer interface {
	Render(doc export.Transcript) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportObserver interface {
	ObserveExport(format string, duration time.Duration, success bool)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders transcript exports, serves them inline and runs
// larger exports through a background queue with signed download URLs.
type ExportService struct {
	sessions *SessionService
	records  *RecordService
	storage  fileStorage
	signer   *storage.SignedURLSigner
	pdf      transcriptRenderer
	csv      transcriptRenderer
	audit    AuditRecorder
	metrics  exportObserver
	logger   *zap.Logger
	cfg      ExportConfig

	queue jobQueue

	mu      sync.RWMutex
	jobByID map[string]*models.ExportJob
}

// NewExportService constructs an ExportService.
func NewExportService(sessions *SessionService, records *RecordService, fs fileStorage, signer *storage.SignedURLSigner, audit AuditRecorder, metrics exportObserver, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		sessions: sessions,
		records:  records,
		storage:  fs,
		signer:   signer,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		jobByID:  make(map[string]*models.ExportJob),
	}
}

// AttachQueue wires the background queue. HandleJob is the queue
// handler; the queue is created after the service, so it is attached
// rather than injected.
func (s *ExportService) AttachQueue(q jobQueue) {
	s.queue = q
}

// BuildTranscript assembles the printable document for one student:
// rows filtered by the query and sorted chronologically by semester
// code, info lines in fixed order with empty lines omitted, and the
// backend aggregates carried verbatim into the summary.
func (s *ExportService) BuildTranscript(session *models.Session, student *models.Student, bundle *models.RecordBundle, query string) export.Transcript {
	rows := s.records.SortForExport(s.records.Search(bundle.Records, query))

	doc := export.Transcript{
		Title:           "Academic Records",
		Rows:            make([]export.TranscriptRow, 0, len(rows)),
		CGPA:            formatCGPA(bundle),
		CreditCompleted: export.FormatDecimal(bundle.TotalCreditHours),
		PreparedBy:      preparedBy(session),
	}

	doc.InfoLines = infoLines(student)

	for _, r := range rows {
		doc.Rows = append(doc.Rows, export.TranscriptRow{
			Code:        r.CodeLabel(),
			Course:      r.Course.Name,
			Semester:    r.SemesterLabel(),
			Status:      r.AttemptLabel() + ": " + r.Status,
			CreditHours: r.CreditHoursLabel(),
			GradePoint:  export.FormatDecimal(r.GradePoint),
			LetterGrade: r.LetterGrade,
		})
	}
	return doc
}

// infoLines builds the student info block. Lines with no applicable
// data are omitted entirely rather than left blank.
func infoLines(student *models.Student) []string {
	lines := make([]string, 0, 5)
	if student.FullName != "" {
		lines = append(lines, "Name: "+student.FullName)
	}
	if student.Username != "" {
		lines = append(lines, "Student ID: "+student.Username)
	}
	if student.Programme != "" {
		lines = append(lines, "Programme: "+student.Programme)
	}
	if student.Batch != "" || student.Section != "" {
		switch {
		case student.Batch != "" && student.Section != "":
			lines = append(lines, fmt.Sprintf("Batch & Section: %s, %s", student.Batch, student.Section))
		case student.Batch != "":
			lines = append(lines, "Batch: "+student.Batch)
		default:
			lines = append(lines, "Section: "+student.Section)
		}
	}
	if student.Semester > 0 {
		lines = append(lines, fmt.Sprintf("Semester: %s", export.Ordinal(student.Semester)))
	}
	return lines
}

func formatCGPA(bundle *models.RecordBundle) string {
	if len(bundle.Records) == 0 && bundle.AverageCGPA == 0 {
		return "—"
	}
	return export.FormatGPA(bundle.AverageCGPA)
}

func preparedBy(session *models.Session) string {
	if session == nil || session.User == nil {
		return ""
	}
	return session.User.FullName()
}

// BuildFilename returns the export artifact name:
// <username>__Academic-Records__<yyyymmdd-hhmmss>.<ext>
func BuildFilename(username string, format models.ExportFormat, at time.Time) string {
	return fmt.Sprintf("%s__Academic-Records__%s.%s", username, at.Format("20060102-150405"), format)
}

// Render fetches the student's records and renders a transcript inline.
// Returns the artifact bytes and its download filename.
func (s *ExportService) Render(ctx context.Context, session *models.Session, username string, req models.ExportRequest) ([]byte, string, error) {
	if !req.Format.Valid() {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	start := time.Now()
	payload, err := s.render(ctx, session, username, req)
	s.observe(string(req.Format), time.Since(start), err == nil)
	if err != nil {
		return nil, "", err
	}

	filename := BuildFilename(username, req.Format, time.Now())
	s.auditExport(ctx, session, username, string(req.Format), "inline")
	return payload, filename, nil
}

func (s *ExportService) render(ctx context.Context, session *models.Session, username string, req models.ExportRequest) ([]byte, error) {
	student, err := s.records.FetchStudent(ctx, session, username)
	if err != nil {
		return nil, err
	}
	bundle, err := s.records.FetchRecords(ctx, session, student.ID)
	if err != nil {
		return nil, err
	}

	doc := s.BuildTranscript(session, student, bundle, req.Query)
	switch req.Format {
	case models.ExportFormatCSV:
		return s.csv.Render(doc)
	default:
		return s.pdf.Render(doc)
	}
}

// CreateJob queues an asynchronous export and returns its handle.
func (s *ExportService) CreateJob(ctx context.Context, session *models.Session, username string, req models.ExportRequest) (*models.ExportJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue unavailable")
	}
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	now := time.Now().UTC()
	job := &models.ExportJob{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Username:  username,
		Format:    req.Format,
		Query:     req.Query,
		Status:    models.ExportJobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "transcript_export", Payload: job.ID}); err != nil {
		s.mu.Lock()
		delete(s.jobByID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	return s.snapshot(job.ID), nil
}

// Job returns a copy of the job state for status polling.
func (s *ExportService) Job(jobID string) (*models.ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// HandleJob is the queue handler for queued exports.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	jobID, _ := job.Payload.(string)
	stored := s.snapshot(jobID)
	if stored == nil {
		return fmt.Errorf("unknown export job %s", jobID)
	}

	s.update(jobID, func(j *models.ExportJob) {
		j.Status = models.ExportJobProcessing
	})

	session, err := s.sessions.Resolve(ctx, stored.SessionID)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	start := time.Now()
	payload, err := s.render(ctx, session, stored.Username, models.ExportRequest{Format: stored.Format, Query: stored.Query})
	s.observe(string(stored.Format), time.Since(start), err == nil)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	filename := BuildFilename(stored.Username, stored.Format, time.Now())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	downloadURL := fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
	s.update(jobID, func(j *models.ExportJob) {
		j.Status = models.ExportJobCompleted
		j.Filename = filename
		j.DownloadURL = downloadURL
		j.ExpiresAt = &expiresAt
		j.Error = ""
	})

	s.auditExport(ctx, session, stored.Username, string(stored.Format), "queued")
	return nil
}

// OpenArtifact validates a signed download token and opens the stored
// file.
func (s *ExportService) OpenArtifact(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export artifact not found")
	}
	return file, relPath, nil
}

// Cleanup removes stored artifacts older than ttl (defaults to the
// configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) snapshot(jobID string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobByID[jobID]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

func (s *ExportService) update(jobID string, fn func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobByID[jobID]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

func (s *ExportService) fail(jobID string, err error) {
	s.update(jobID, func(j *models.ExportJob) {
		j.Status = models.ExportJobFailed
		j.Error = appErrors.FromError(err).Message
	})
}

func (s *ExportService) observe(format string, d time.Duration, success bool) {
	if s.metrics != nil {
		s.metrics.ObserveExport(format, d, success)
	}
}

func (s *ExportService) auditExport(ctx context.Context, session *models.Session, username, format, mode string) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{"student": username, "format": format, "mode": mode})
	sessionID := session.ID
	entry := &models.AuditLog{
		SessionID: &sessionID,
		Username:  session.Username(),
		Action:    models.AuditActionExport,
		Resource:  "academic-records",
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record export audit entry", zap.Error(err))
	}
}
