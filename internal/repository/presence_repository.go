package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collab-service/internal/domain"
)

// PresenceRepository mirrors presence transitions into PostgreSQL. All writes
// are best-effort: when no database is attached (startup retry still running)
// every operation is a no-op and reads report ErrRecordNotFound.
type PresenceRepository struct {
	mu sync.RWMutex
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Attach installs the database handle once the background retry succeeds.
func (r *PresenceRepository) Attach(db *gorm.DB) {
	r.mu.Lock()
	r.db = db
	r.mu.Unlock()
}

func (r *PresenceRepository) handle() *gorm.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

// Upsert records a join or rejoin for (room, user).
func (r *PresenceRepository) Upsert(ctx context.Context, roomID string, p *domain.UserPresence) error {
	db := r.handle()
	if db == nil {
		return nil
	}

	record := &domain.RoomPresenceRecord{
		RoomID:   roomID,
		UserID:   p.UserID,
		Username: p.Username,
		Email:    p.Email,
		Role:     p.Role,
		Color:    p.Color,
		Status:   p.Status,
		LastSeen: p.LastSeen,
	}
	if p.Cursor != nil {
		if raw, err := json.Marshal(p.Cursor); err == nil {
			record.LastCursor = datatypes.JSON(raw)
		}
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "role", "color", "status", "last_cursor", "last_seen",
		}),
	}).Create(record).Error
}

// SetOffline marks the mirrored entry offline and stamps last_seen.
func (r *PresenceRepository) SetOffline(ctx context.Context, roomID string, userID uuid.UUID) error {
	db := r.handle()
	if db == nil {
		return nil
	}

	return db.WithContext(ctx).Model(&domain.RoomPresenceRecord{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"status":    domain.PresenceOffline,
			"last_seen": time.Now(),
		}).Error
}

// GetUserStatus returns the most recent presence record for a user across
// all rooms.
func (r *PresenceRepository) GetUserStatus(ctx context.Context, userID uuid.UUID) (*domain.RoomPresenceRecord, error) {
	db := r.handle()
	if db == nil {
		return nil, gorm.ErrRecordNotFound
	}

	var record domain.RoomPresenceRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetRoomRecords returns mirrored entries for a room, most recent first.
func (r *PresenceRepository) GetRoomRecords(ctx context.Context, roomID string) ([]domain.RoomPresenceRecord, error) {
	db := r.handle()
	if db == nil {
		return nil, nil
	}

	var records []domain.RoomPresenceRecord
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("last_seen DESC").
		Find(&records).Error
	return records, err
}
