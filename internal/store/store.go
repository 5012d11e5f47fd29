package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-booking-backend/internal/model"
)

// ErrNotFound is returned by point lookups when the row does not exist.
var ErrNotFound = errors.New("not found")

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	SpaceID      *uuid.UUID
	State        *model.ReservationState
	From         *time.Time // StartsAt >= From
	To           *time.Time // StartsAt < To
	FromSchedule *bool
}

// BlockFilter narrows availability-block listings.
type BlockFilter struct {
	SpaceID  *uuid.UUID
	Blocking *bool
}

// Store defines the persistence operations the booking core and the API layer
// depend on. Multi-row effects run through Tx so they commit or roll back as
// a unit.
type Store interface {
	DB() *gorm.DB
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error

	Space(ctx context.Context, id uuid.UUID) (*model.Space, error)
	CreateSpace(ctx context.Context, space *model.Space) error
	ListSpaces(ctx context.Context, includeInactive bool) ([]model.Space, error)
	ListBlocks(ctx context.Context, f BlockFilter) ([]model.AvailabilityBlock, error)

	Reservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	History(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationStateLog, error)
	OpeningsForReservations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.OpeningRecord, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *gormStore) Space(ctx context.Context, id uuid.UUID) (*model.Space, error) {
	var space model.Space
	err := s.db.WithContext(ctx).First(&space, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

// CreateSpace persists a space together with its baseline weekly availability.
// Seeding the default blocks here, in the same transaction, is what keeps the
// "every space has open hours" invariant without relying on save hooks.
func (s *gormStore) CreateSpace(ctx context.Context, space *model.Space) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(space).Error; err != nil {
			return err
		}
		blocks := model.DefaultAvailability(space.ID)
		return tx.Create(&blocks).Error
	})
}

func (s *gormStore) ListSpaces(ctx context.Context, includeInactive bool) ([]model.Space, error) {
	q := s.db.WithContext(ctx).Order("code")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var spaces []model.Space
	if err := q.Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *gormStore) ListBlocks(ctx context.Context, f BlockFilter) ([]model.AvailabilityBlock, error) {
	q := s.db.WithContext(ctx).Order("weekday, date_from, start_time")
	if f.SpaceID != nil {
		q = q.Where("space_id = ?", *f.SpaceID)
	}
	if f.Blocking != nil {
		q = q.Where("is_blocking = ?", *f.Blocking)
	}
	var blocks []model.AvailabilityBlock
	if err := q.Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *gormStore) Reservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var reservation model.Reservation
	err := s.db.WithContext(ctx).Preload("Space").First(&reservation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *gormStore) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("Space").Order("starts_at")
	if f.SpaceID != nil {
		q = q.Where("space_id = ?", *f.SpaceID)
	}
	if f.State != nil {
		q = q.Where("state = ?", *f.State)
	}
	if f.From != nil {
		q = q.Where("starts_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("starts_at < ?", *f.To)
	}
	if f.FromSchedule != nil {
		q = q.Where("from_schedule = ?", *f.FromSchedule)
	}
	var reservations []model.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *gormStore) History(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationStateLog, error) {
	var entries []model.ReservationStateLog
	err := s.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *gormStore) OpeningsForReservations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.OpeningRecord, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]model.OpeningRecord{}, nil
	}
	var records []model.OpeningRecord
	if err := s.db.WithContext(ctx).Where("reservation_id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[uuid.UUID]model.OpeningRecord, len(records))
	for _, r := range records {
		recordMap[r.ReservationID] = r
	}
	return recordMap, nil
}

// --- Transaction-scoped helpers used by the booking core ---

// overlapQuery builds the half-open interval predicate [start, end) for a
// space, restricted to the given states. Schedule-derived rows never count as
// conflicts.
func overlapQuery(tx *gorm.DB, spaceID uuid.UUID, start, end time.Time, states []model.ReservationState) *gorm.DB {
	return tx.Model(&model.Reservation{}).
		Where("space_id = ?", spaceID).
		Where("state IN ?", states).
		Where("from_schedule = ?", false).
		Where("starts_at < ? AND ends_at > ?", end, start)
}

// OverlapExists reports whether any reservation in one of the given states
// overlaps [start, end) on the space, excluding the given reservation id (for
// updates).
func OverlapExists(tx *gorm.DB, spaceID uuid.UUID, start, end time.Time, states []model.ReservationState, excludeID *uuid.UUID) (bool, error) {
	q := overlapQuery(tx, spaceID, start, end, states)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LockConflictingPending loads, with a row lock where the dialect supports
// it, every pending reservation overlapping [start, end) on the space. The
// lock serializes concurrent approvals over the same conflict set.
func LockConflictingPending(tx *gorm.DB, spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]model.Reservation, error) {
	q := overlapQuery(tx, spaceID, start, end, []model.ReservationState{model.StatePending}).
		Where("id <> ?", excludeID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var conflicting []model.Reservation
	if err := q.Find(&conflicting).Error; err != nil {
		return nil, err
	}
	return conflicting, nil
}

// CreateReservation persists a reservation together with its creation log
// entry, atomically.
func CreateReservation(tx *gorm.DB, r *model.Reservation, comment string) error {
	if err := tx.Create(r).Error; err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return AppendStateLog(tx, r.ID, nil, r.State, r.CreatedByID, comment)
}

// AppendStateLog writes one immutable audit entry.
func AppendStateLog(tx *gorm.DB, reservationID uuid.UUID, previous *model.ReservationState, next model.ReservationState, actorID *uuid.UUID, comment string) error {
	entry := model.ReservationStateLog{
		ReservationID: reservationID,
		PreviousState: previous,
		NewState:      next,
		ActorID:       actorID,
		Comment:       comment,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append state log: %w", err)
	}
	return nil
}

// FindOrCreateOpening returns the opening record for the reservation's
// occurrence at scheduledAt, creating it when missing. The uniqueness index
// on (reservation, scheduled_at) backs the at-most-one invariant.
func FindOrCreateOpening(tx *gorm.DB, r *model.Reservation, scheduledAt time.Time) (*model.OpeningRecord, error) {
	var record model.OpeningRecord
	err := tx.Where("reservation_id = ? AND scheduled_at = ?", r.ID, scheduledAt).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = model.OpeningRecord{
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		ScheduledAt:   scheduledAt,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create opening record: %w", err)
	}
	return &record, nil
}
