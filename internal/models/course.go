package models

import "time"

// Course is an admissions target with a finite seat budget.
// Invariant: 0 <= available_seats <= total_seats.
type Course struct {
	ID                    string      `db:"id" json:"id"`
	Name                  string      `db:"name" json:"name"`
	Code                  string      `db:"code" json:"code"`
	Department            string      `db:"department" json:"department"`
	ProgramType           ProgramType `db:"program_type" json:"program_type"`
	DurationYears         int         `db:"duration_years" json:"duration_years"`
	TotalSeats            int         `db:"total_seats" json:"total_seats"`
	AvailableSeats        int         `db:"available_seats" json:"available_seats"`
	EligibilityPercentage float64     `db:"eligibility_percentage" json:"eligibility_percentage"`
	FeesPerSemester       float64     `db:"fees_per_semester" json:"fees_per_semester,omitempty"`
	Active                bool        `db:"active" json:"active"`
	CreatedAt             time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Department  string
	ProgramType ProgramType
	Active      *bool
	Search      string
	Page        int
	PageSize    int
}
