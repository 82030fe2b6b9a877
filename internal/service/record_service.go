package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hstu-emis/admin-gateway/internal/models"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
)

type recordsUpstream interface {
	StudentByUsername(ctx context.Context, accessToken, username string) (*models.Student, error)
	AcademicRecords(ctx context.Context, accessToken, studentID string) (*models.RecordBundle, error)
}

// RecordService projects a student's academic records for display and
// export. Aggregates (CGPA, completed credit hours) are delivered by
// the backend next to the raw list and consumed as given; recomputing
// them here would double-count retakes and non-credit enrollments,
// whose inclusion rules live server-side.
type RecordService struct {
	sessions *SessionService
	upstream recordsUpstream
	logger   *zap.Logger
}

// NewRecordService constructs a RecordService.
func NewRecordService(sessions *SessionService, up recordsUpstream, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{sessions: sessions, upstream: up, logger: logger}
}

// FetchStudent loads one student profile under the session's renewal
// policy.
func (s *RecordService) FetchStudent(ctx context.Context, session *models.Session, username string) (*models.Student, error) {
	var student *models.Student
	err := s.sessions.Authorized(ctx, session, func(token string) error {
		var callErr error
		student, callErr = s.upstream.StudentByUsername(ctx, token, username)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// FetchRecords loads the record bundle for one student. An empty list
// with zero aggregates is a valid terminal state, distinct from a fetch
// failure. Students only ever see published records.
func (s *RecordService) FetchRecords(ctx context.Context, session *models.Session, studentID string) (*models.RecordBundle, error) {
	var bundle *models.RecordBundle
	err := s.sessions.Authorized(ctx, session, func(token string) error {
		var callErr error
		bundle, callErr = s.upstream.AcademicRecords(ctx, token, studentID)
		return callErr
	})
	if err != nil {
		e := appErrors.FromError(err)
		if e.Code == appErrors.ErrNotFound.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, e.Code, e.Status, "failed to fetch records")
	}

	if session.Role() == models.RoleStudent {
		bundle.Records = publishedOnly(bundle.Records)
	}
	return bundle, nil
}

func publishedOnly(records []models.AcademicRecord) []models.AcademicRecord {
	visible := make([]models.AcademicRecord, 0, len(records))
	for _, r := range records {
		if r.IsPublished {
			visible = append(visible, r)
		}
	}
	return visible
}

// Search filters records with a single free-text query. The lowercased
// query is matched as a substring against every display field of a
// record; a record is included if any field matches.
func (s *RecordService) Search(records []models.AcademicRecord, query string) []models.AcademicRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}

	matched := make([]models.AcademicRecord, 0, len(records))
	for _, r := range records {
		if recordMatches(&r, query) {
			matched = append(matched, r)
		}
	}
	return matched
}

func recordMatches(r *models.AcademicRecord, query string) bool {
	fields := []string{
		r.CodeLabel(),
		r.Course.Name,
		r.SemesterLabel(),
		r.PublishLabel(),
		r.CreditLabel(),
		r.AttemptLabel(),
		r.AttemptLabel() + ": " + r.Status,
		r.Status,
		strconv.FormatFloat(r.Course.CreditHours, 'f', -1, 64),
		strconv.FormatFloat(r.GradePoint, 'f', -1, 64),
		r.LetterGrade,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// SortForExport orders records ascending by semester code. The code is
// the server-provided sortable token; sorting the display label would
// not be chronological. The sort is stable so equal-semester records
// keep their incoming order.
func (s *RecordService) SortForExport(records []models.AcademicRecord) []models.AcademicRecord {
	sorted := make([]models.AcademicRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Semester.Code < sorted[j].Semester.Code
	})
	return sorted
}
