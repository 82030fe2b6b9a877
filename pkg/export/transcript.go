package export

// Disclaimer is printed in the footer of every transcript page.
const Disclaimer = "Note: This is a draft academic record, not an official document without an authorized seal and signature."

// TranscriptColumns lists the table column headers in print order.
var TranscriptColumns = []string{"Code", "Course", "Semester", "Status", "CH", "GP/CH", "LG"}

// TranscriptRow is one printed table row, already formatted.
type TranscriptRow struct {
	Code        string
	Course      string
	Semester    string
	Status      string
	CreditHours string
	GradePoint  string
	LetterGrade string
}

// Transcript is the content contract for a printable academic record:
// title, student info lines (already filtered of empty entries), sorted
// table rows and the server-supplied aggregate summary.
type Transcript struct {
	Title string
	// InfoLines are printed one per line below the title, in the fixed
	// order name, id, programme, batch/section, semester. Lines without
	// data are omitted by the caller, not left blank.
	InfoLines []string
	Rows      []TranscriptRow
	// CGPA and CreditCompleted carry the backend aggregates verbatim.
	CGPA            string
	CreditCompleted string
	// PreparedBy names the acting user the export was generated by.
	PreparedBy string
}

func (t *Transcript) cells(row TranscriptRow) []string {
	return []string{
		row.Code,
		row.Course,
		row.Semester,
		row.Status,
		row.CreditHours,
		row.GradePoint,
		row.LetterGrade,
	}
}
