package models

import "time"

// MeritListEntry is one ranked candidate in a settlement outcome.
type MeritListEntry struct {
	Rank          int               `json:"rank"`
	ApplicationID string            `json:"application_id"`
	Student       UserInfo          `json:"student"`
	Percentage    float64           `json:"percentage"`
	Status        ApplicationStatus `json:"status"`
	EnrollmentNo  string            `json:"enrollment_no,omitempty"`
}

// MeritListSummary is the aggregate outcome of one settlement run.
type MeritListSummary struct {
	Message           string           `json:"message"`
	Course            string           `json:"course"`
	AdmissionYear     int              `json:"admission_year"`
	TotalApplications int              `json:"total_applications"`
	Selected          int              `json:"selected"`
	Rejected          int              `json:"rejected"`
	MeritList         []MeritListEntry `json:"merit_list"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// MeritListItem is a settled application row for read-side queries.
type MeritListItem struct {
	Rank           int               `db:"merit_rank" json:"rank"`
	ApplicationID  string            `db:"id" json:"application_id"`
	ApplicantID    string            `db:"applicant_id" json:"applicant_id"`
	ApplicantName  string            `db:"applicant_name" json:"applicant_name"`
	ApplicantEmail string            `db:"applicant_email" json:"applicant_email"`
	CourseID       string            `db:"course_id" json:"course_id"`
	CourseName     string            `db:"course_name" json:"course_name"`
	CourseCode     string            `db:"course_code" json:"course_code"`
	Percentage     float64           `db:"percentage" json:"percentage"`
	Status         ApplicationStatus `db:"status" json:"status"`
	AdmissionYear  int               `db:"admission_year" json:"admission_year"`
}

// MeritListQuery filters read-side merit list lookups.
type MeritListQuery struct {
	CourseID      string
	AdmissionYear int
}
