package models

import (
	"fmt"
	"strconv"
)

// Course describes the catalogue entry behind a course offer.
type Course struct {
	Name        string  `json:"name"`
	Acronym     string  `json:"acronym"`
	Code        int     `json:"code"`
	CreditHours float64 `json:"credit_hours"`
}

// Semester identifies a term. Code is the opaque server-side token that
// sorts chronologically; the display label does not.
type Semester struct {
	TermName string `json:"term_name"`
	Year     int    `json:"year"`
	Code     string `json:"code"`
}

// AcademicRecord is one per-course outcome for a student, owned by the
// EMIS backend and read-only from the gateway's perspective.
type AcademicRecord struct {
	ID          string   `json:"id"`
	Course      Course   `json:"course"`
	Semester    Semester `json:"semester"`
	Attendance  float64  `json:"attendance"`
	Assignment  float64  `json:"assignment"`
	MidTerm     float64  `json:"mid_term"`
	Final       float64  `json:"final"`
	LetterGrade string   `json:"letter_grade"`
	GradePoint  float64  `json:"grade_point"`
	Status      string   `json:"status"`
	IsPublished bool     `json:"is_published"`
	NonCredit   bool     `json:"non_credit"`
	IsRegular   bool     `json:"is_regular"`
}

// Total is the derived 0-100 score. Not stored by the backend.
func (r *AcademicRecord) Total() float64 {
	return r.Attendance + r.Assignment + r.MidTerm + r.Final
}

// CodeLabel renders the canonical course code, e.g. "CSE-101".
func (r *AcademicRecord) CodeLabel() string {
	return fmt.Sprintf("%s-%d", r.Course.Acronym, r.Course.Code)
}

// SemesterLabel renders the display label, e.g. "Fall 2021".
func (r *AcademicRecord) SemesterLabel() string {
	return fmt.Sprintf("%s %d", r.Semester.TermName, r.Semester.Year)
}

// PublishLabel renders the publish state for display and search.
func (r *AcademicRecord) PublishLabel() string {
	if r.IsPublished {
		return "Published"
	}
	return "Unpublished"
}

// CreditLabel renders the credit-bearing state for display and search.
func (r *AcademicRecord) CreditLabel() string {
	if r.NonCredit {
		return "Non Credit"
	}
	return "Credit"
}

// AttemptLabel renders the first-attempt/retake state.
func (r *AcademicRecord) AttemptLabel() string {
	if r.IsRegular {
		return "Regular"
	}
	return "Retake"
}

// CreditHoursLabel is the CH table cell: the literal "Non Credit" for
// non-credit enrollments, otherwise the numeric credit-hour value.
func (r *AcademicRecord) CreditHoursLabel() string {
	if r.NonCredit {
		return "Non Credit"
	}
	return strconv.FormatFloat(r.Course.CreditHours, 'f', -1, 64)
}

// RecordBundle is the aggregate payload for one student. AverageCGPA
// and TotalCreditHours are computed server-side and consumed as given;
// the gateway never re-derives them from the record list.
type RecordBundle struct {
	Records          []AcademicRecord `json:"academic_records"`
	AverageCGPA      float64          `json:"average_cgpa"`
	TotalCreditHours float64          `json:"total_credit_hours"`
}
