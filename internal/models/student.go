package models

// Student is the enrollment profile fetched from the EMIS backend.
// Fields that are not on record arrive empty and are omitted from
// exports rather than printed blank.
type Student struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Programme string `json:"programme,omitempty"`
	Batch     string `json:"batch,omitempty"`
	Section   string `json:"section,omitempty"`
	// Semester is the current or last-attended semester number,
	// zero when unknown.
	Semester int `json:"semester,omitempty"`
}
