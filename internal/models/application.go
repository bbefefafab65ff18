package models

import "time"

// ApplicationStatus represents the lifecycle of an admission application.
type ApplicationStatus string

// Possible application statuses. PENDING applications are the only input the
// settlement engine considers; the filter is what makes re-running a
// settlement for the same course and year safe.
const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusSelected ApplicationStatus = "SELECTED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
	ApplicationStatusEnrolled ApplicationStatus = "ENROLLED"
)

// Gender of the applicant, used for hostel eligibility.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// ProgramType distinguishes undergraduate and postgraduate intakes.
type ProgramType string

const (
	ProgramUndergraduate ProgramType = "UG"
	ProgramPostgraduate  ProgramType = "PG"
)

// Application is one applicant's bid for one course in one admission year.
type Application struct {
	ID                    string            `db:"id" json:"id"`
	ApplicantID           string            `db:"applicant_id" json:"applicant_id"`
	CourseID              string            `db:"course_id" json:"course_id"`
	ProgramType           ProgramType       `db:"program_type" json:"program_type"`
	PreviousQualification string            `db:"previous_qualification" json:"previous_qualification,omitempty"`
	PreviousMarks         float64           `db:"previous_marks" json:"previous_marks,omitempty"`
	Percentage            float64           `db:"percentage" json:"percentage"`
	Gender                Gender            `db:"gender" json:"gender"`
	HostelRequired        bool              `db:"hostel_required" json:"hostel_required"`
	Status                ApplicationStatus `db:"status" json:"status"`
	MeritRank             *int              `db:"merit_rank" json:"merit_rank,omitempty"`
	AdmissionYear         int               `db:"admission_year" json:"admission_year"`
	AppliedAt             time.Time         `db:"applied_at" json:"applied_at"`
}

// ApplicationDetail enriches Application with applicant and course info.
type ApplicationDetail struct {
	Application
	ApplicantName  string `db:"applicant_name" json:"applicant_name"`
	ApplicantEmail string `db:"applicant_email" json:"applicant_email"`
	CourseName     string `db:"course_name" json:"course_name"`
	CourseCode     string `db:"course_code" json:"course_code"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	ApplicantID   string
	CourseID      string
	Status        ApplicationStatus
	ProgramType   ProgramType
	AdmissionYear int
	Page          int
	PageSize      int
}
