package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusSuspended EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Enrollment is the durable record of an admitted student. EnrollmentNo is
// unique across the system; RollNo is unique within a course and year and
// carries the course code prefix so it is globally distinguishable too.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	CourseID        string           `db:"course_id" json:"course_id"`
	EnrollmentNo    string           `db:"enrollment_no" json:"enrollment_no"`
	RollNo          string           `db:"roll_no" json:"roll_no"`
	AdmissionYear   int              `db:"admission_year" json:"admission_year"`
	CurrentSemester int              `db:"current_semester" json:"current_semester"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	AdmittedAt      time.Time        `db:"admitted_at" json:"admitted_at"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID     string
	CourseID      string
	AdmissionYear int
	Status        EnrollmentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
