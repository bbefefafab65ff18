package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/admissions-api/internal/models"
)

// HostelRepository handles persistence of hostels and room allocations.
type HostelRepository struct {
	db *sqlx.DB
}

// NewHostelRepository constructs the repository.
func NewHostelRepository(db *sqlx.DB) *HostelRepository {
	return &HostelRepository{db: db}
}

// AllocateRoom assigns the first active hostel with a free room that can host
// the given gender (or is co-ed), decrementing its room counter and inserting
// the allocation in one transaction. Returns (nil, nil) when no hostel has
// capacity; admission proceeds without housing in that case.
func (r *HostelRepository) AllocateRoom(ctx context.Context, studentID string, gender models.Gender) (alloc *models.HostelAllocation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin hostel allocation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var hostel models.Hostel
	const selectQuery = `SELECT id, name, code, gender, total_rooms, available_rooms, capacity_per_room,
        fee_per_semester, active, created_at
        FROM hostels
        WHERE active = true AND available_rooms > 0 AND (gender = $1 OR gender = $2)
        ORDER BY created_at ASC LIMIT 1 FOR UPDATE`
	if err = tx.GetContext(ctx, &hostel, selectQuery, hostelGenderFor(gender), models.HostelGenderCoEd); err != nil {
		if err == sql.ErrNoRows {
			err = nil
			_ = tx.Rollback()
			return nil, nil
		}
		return nil, fmt.Errorf("find available hostel: %w", err)
	}

	const updateQuery = `UPDATE hostels SET available_rooms = available_rooms - 1
        WHERE id = $1 AND available_rooms > 0`
	result, err := tx.ExecContext(ctx, updateQuery, hostel.ID)
	if err != nil {
		return nil, fmt.Errorf("decrement hostel rooms: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("decrement hostel rooms affected: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("hostel %s lost capacity during allocation", hostel.Code)
		return nil, err
	}

	// Room numbers are sequential occupancy slots within the hostel.
	roomNumber := fmt.Sprintf("%s-%d", hostel.Code, hostel.TotalRooms-hostel.AvailableRooms+1)
	allocation := &models.HostelAllocation{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		HostelID:    hostel.ID,
		RoomNumber:  roomNumber,
		Status:      models.AllocationStatusAllocated,
		AllocatedAt: time.Now().UTC(),
	}
	const insertQuery = `INSERT INTO hostel_allocations (id, student_id, hostel_id, room_number, status, allocated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertQuery, allocation.ID, allocation.StudentID, allocation.HostelID,
		allocation.RoomNumber, allocation.Status, allocation.AllocatedAt); err != nil {
		return nil, fmt.Errorf("insert hostel allocation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit hostel allocation: %w", err)
	}
	return allocation, nil
}

// Vacate marks an allocation vacated and returns the room to the hostel pool.
func (r *HostelRepository) Vacate(ctx context.Context, allocationID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hostel vacate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var allocation models.HostelAllocation
	const selectQuery = `SELECT id, student_id, hostel_id, room_number, status, allocated_at, vacated_at
        FROM hostel_allocations WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &allocation, selectQuery, allocationID); err != nil {
		return err
	}
	if allocation.Status != models.AllocationStatusAllocated {
		err = fmt.Errorf("allocation %s already vacated", allocationID)
		return err
	}

	now := time.Now().UTC()
	const updateAllocation = `UPDATE hostel_allocations SET status = $2, vacated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateAllocation, allocationID, models.AllocationStatusVacated, now); err != nil {
		return fmt.Errorf("vacate allocation: %w", err)
	}
	const updateHostel = `UPDATE hostels SET available_rooms = available_rooms + 1
        WHERE id = $1 AND available_rooms < total_rooms`
	if _, err = tx.ExecContext(ctx, updateHostel, allocation.HostelID); err != nil {
		return fmt.Errorf("restore hostel room: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit hostel vacate: %w", err)
	}
	return nil
}

// FindAllocationByStudent returns the student's current allocation, if any.
func (r *HostelRepository) FindAllocationByStudent(ctx context.Context, studentID string) (*models.HostelAllocation, error) {
	const query = `SELECT id, student_id, hostel_id, room_number, status, allocated_at, vacated_at
        FROM hostel_allocations WHERE student_id = $1 AND status = $2 LIMIT 1`
	var allocation models.HostelAllocation
	if err := r.db.GetContext(ctx, &allocation, query, studentID, models.AllocationStatusAllocated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find allocation: %w", err)
	}
	return &allocation, nil
}

// Create persists a new hostel.
func (r *HostelRepository) Create(ctx context.Context, hostel *models.Hostel) error {
	if hostel.ID == "" {
		hostel.ID = uuid.NewString()
	}
	if hostel.CreatedAt.IsZero() {
		hostel.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO hostels (id, name, code, gender, total_rooms, available_rooms,
        capacity_per_room, fee_per_semester, active, created_at)
        VALUES (:id, :name, :code, :gender, :total_rooms, :available_rooms,
        :capacity_per_room, :fee_per_semester, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hostel); err != nil {
		return fmt.Errorf("create hostel: %w", err)
	}
	return nil
}

// List returns all hostels.
func (r *HostelRepository) List(ctx context.Context) ([]models.Hostel, error) {
	const query = `SELECT id, name, code, gender, total_rooms, available_rooms, capacity_per_room,
        fee_per_semester, active, created_at FROM hostels ORDER BY name ASC`
	var hostels []models.Hostel
	if err := r.db.SelectContext(ctx, &hostels, query); err != nil {
		return nil, fmt.Errorf("list hostels: %w", err)
	}
	return hostels, nil
}

func hostelGenderFor(gender models.Gender) models.HostelGender {
	switch gender {
	case models.GenderMale:
		return models.HostelGenderMale
	case models.GenderFemale:
		return models.HostelGenderFemale
	default:
		return models.HostelGenderCoEd
	}
}
