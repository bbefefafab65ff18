package models

import "time"

// HostelGender describes who a hostel can host.
type HostelGender string

const (
	HostelGenderMale   HostelGender = "MALE"
	HostelGenderFemale HostelGender = "FEMALE"
	HostelGenderCoEd   HostelGender = "CO_ED"
)

// Hostel is a capacity-bounded lodging unit.
// Invariant: 0 <= available_rooms <= total_rooms.
type Hostel struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Code            string       `db:"code" json:"code"`
	Gender          HostelGender `db:"gender" json:"gender"`
	TotalRooms      int          `db:"total_rooms" json:"total_rooms"`
	AvailableRooms  int          `db:"available_rooms" json:"available_rooms"`
	CapacityPerRoom int          `db:"capacity_per_room" json:"capacity_per_room"`
	FeePerSemester  float64      `db:"fee_per_semester" json:"fee_per_semester,omitempty"`
	Active          bool         `db:"active" json:"active"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// AllocationStatus represents hostel allocation state.
type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "ALLOCATED"
	AllocationStatusVacated   AllocationStatus = "VACATED"
)

// HostelAllocation records one student's room assignment. At most one
// ALLOCATED allocation may exist per student at any time.
type HostelAllocation struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	HostelID    string           `db:"hostel_id" json:"hostel_id"`
	RoomNumber  string           `db:"room_number" json:"room_number"`
	Status      AllocationStatus `db:"status" json:"status"`
	AllocatedAt time.Time        `db:"allocated_at" json:"allocated_at"`
	VacatedAt   *time.Time       `db:"vacated_at" json:"vacated_at,omitempty"`
}
