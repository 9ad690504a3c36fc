package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/repository"
)

var (
	// ErrNoIdentity is returned when a join request carries no resolvable
	// user identity. The caller rejects the request without mutating state.
	ErrNoIdentity = errors.New("no resolvable user identity")
	// ErrRoomRequired is returned when a join request names no room.
	ErrRoomRequired = errors.New("room id required")
)

// roomState is everything the service tracks for one room. Mutated only while
// holding the service mutex.
type roomState struct {
	members map[uuid.UUID]*domain.UserPresence
	order   []uuid.UUID // join order of online members
	alloc   *colorAllocator
	leftAt  map[uuid.UUID]time.Time
}

// JoinInput is the identity and display metadata for a join. UserID and Email
// come from the authenticated token; Username and Role are display hints
// trusted as supplied.
type JoinInput struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Role     domain.Role
}

// PresenceService is the authoritative in-memory registry of room presence:
// who is in which room, with which color, and where their cursor last was.
// It is the sole writer of presence state; the hub and HTTP handlers only
// ever see copies. Disconnected entries linger for a grace window so a quick
// reconnect gets its previous color back, then the sweeper purges them.
type PresenceService struct {
	mu      sync.RWMutex
	rooms   map[string]*roomState
	palette []string
	grace   time.Duration

	repo   *repository.PresenceRepository
	logger *zap.Logger
}

func NewPresenceService(repo *repository.PresenceRepository, logger *zap.Logger, grace time.Duration) *PresenceService {
	return &PresenceService{
		rooms:   make(map[string]*roomState),
		palette: DefaultPalette,
		grace:   grace,
		repo:    repo,
		logger:  logger,
	}
}

// Join registers (or re-registers) a user in a room and returns the stored
// entry plus the full online roster in join order, the joining user included.
// A rejoin replaces the previous entry; its color is kept when still free.
func (s *PresenceService) Join(ctx context.Context, roomID string, in JoinInput) (domain.UserPresence, []domain.UserPresence, error) {
	if roomID == "" {
		return domain.UserPresence{}, nil, ErrRoomRequired
	}
	if in.UserID == uuid.Nil {
		return domain.UserPresence{}, nil, ErrNoIdentity
	}

	now := time.Now()

	s.mu.Lock()
	rs, ok := s.rooms[roomID]
	if !ok {
		rs = &roomState{
			members: make(map[uuid.UUID]*domain.UserPresence),
			alloc:   newColorAllocator(s.palette),
			leftAt:  make(map[uuid.UUID]time.Time),
		}
		s.rooms[roomID] = rs
	}

	// A rejoin (page refresh, reconnect within the grace window) replaces the
	// previous entry instead of duplicating it.
	previousColor := ""
	if existing, ok := rs.members[in.UserID]; ok {
		previousColor = existing.Color
		rs.order = removeFromOrder(rs.order, in.UserID)
		delete(rs.members, in.UserID)
		delete(rs.leftAt, in.UserID)
	}

	inUse := make(map[string]bool, len(rs.members))
	for _, m := range rs.members {
		if m.Status == domain.PresenceOnline {
			inUse[m.Color] = true
		}
	}

	var color string
	if previousColor != "" && !inUse[previousColor] && rs.alloc.holds(previousColor) {
		color = previousColor
	} else {
		var exhausted bool
		color, exhausted = rs.alloc.assign(inUse)
		if exhausted {
			// Uniqueness is broken: the palette is undersized for this
			// room's occupancy. Configuration problem, not a transient one.
			s.logger.Error("color palette exhausted, assigning duplicate color",
				zap.String("roomId", roomID),
				zap.Int("paletteSize", len(s.palette)),
				zap.Int("occupancy", len(rs.members)+1))
		}
	}

	p := &domain.UserPresence{
		UserID:   in.UserID,
		Username: in.Username,
		Email:    in.Email,
		Role:     in.Role,
		Color:    color,
		Status:   domain.PresenceOnline,
		JoinedAt: now,
		LastSeen: now,
	}
	rs.members[in.UserID] = p
	rs.order = append(rs.order, in.UserID)

	entry := clonePresence(p)
	roster := s.rosterLocked(rs)
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, roomID, &entry); err != nil {
		s.logger.Warn("failed to mirror join to DB",
			zap.String("roomId", roomID),
			zap.String("userId", in.UserID.String()),
			zap.Error(err))
	}

	return entry, roster, nil
}

// Leave transitions a user to offline. Returns the entry as it was at
// departure and whether a transition actually happened, so duplicate
// disconnect signals collapse to a silent no-op. The entry itself is kept
// until the grace window elapses (see Sweep).
func (s *PresenceService) Leave(ctx context.Context, roomID string, userID uuid.UUID) (domain.UserPresence, bool) {
	now := time.Now()

	s.mu.Lock()
	rs, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return domain.UserPresence{}, false
	}
	p, ok := rs.members[userID]
	if !ok || p.Status != domain.PresenceOnline {
		s.mu.Unlock()
		return domain.UserPresence{}, false
	}

	p.Status = domain.PresenceOffline
	p.LastSeen = now
	rs.leftAt[userID] = now
	rs.order = removeFromOrder(rs.order, userID)

	entry := clonePresence(p)
	s.mu.Unlock()

	if err := s.repo.SetOffline(ctx, roomID, userID); err != nil {
		s.logger.Warn("failed to mirror leave to DB",
			zap.String("roomId", roomID),
			zap.String("userId", userID.String()),
			zap.Error(err))
	}

	return entry, true
}

// UpdateCursor stores the last known cursor position for an online member and
// returns the updated entry (the relay needs the assigned color).
func (s *PresenceService) UpdateCursor(roomID string, userID uuid.UUID, x, y float64) (domain.UserPresence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.rooms[roomID]
	if !ok {
		return domain.UserPresence{}, false
	}
	p, ok := rs.members[userID]
	if !ok || p.Status != domain.PresenceOnline {
		return domain.UserPresence{}, false
	}

	p.Cursor = &domain.CursorPosition{X: x, Y: y}
	p.LastSeen = time.Now()
	return clonePresence(p), true
}

// Touch stamps activity for an online member and returns its entry.
func (s *PresenceService) Touch(roomID string, userID uuid.UUID) (domain.UserPresence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.rooms[roomID]
	if !ok {
		return domain.UserPresence{}, false
	}
	p, ok := rs.members[userID]
	if !ok || p.Status != domain.PresenceOnline {
		return domain.UserPresence{}, false
	}

	p.LastSeen = time.Now()
	return clonePresence(p), true
}

// Roster returns the online members of a room in join order.
func (s *PresenceService) Roster(roomID string) []domain.UserPresence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return s.rosterLocked(rs)
}

func (s *PresenceService) rosterLocked(rs *roomState) []domain.UserPresence {
	roster := make([]domain.UserPresence, 0, len(rs.order))
	for _, id := range rs.order {
		if p, ok := rs.members[id]; ok && p.Status == domain.PresenceOnline {
			roster = append(roster, clonePresence(p))
		}
	}
	return roster
}

// Stats reports tracked room and online member counts for the gauges.
func (s *PresenceService) Stats() (rooms int, online int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rs := range s.rooms {
		online += len(rs.order)
	}
	return len(s.rooms), online
}

// Sweep purges offline entries whose grace window has elapsed and drops rooms
// that end up empty. Returns the number of purged entries.
func (s *PresenceService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for roomID, rs := range s.rooms {
		for userID, left := range rs.leftAt {
			if now.Sub(left) >= s.grace {
				delete(rs.members, userID)
				delete(rs.leftAt, userID)
				purged++
			}
		}
		if len(rs.members) == 0 {
			delete(s.rooms, roomID)
		}
	}
	return purged
}

// UserStatus looks up the most recent durable presence record for a user.
func (s *PresenceService) UserStatus(ctx context.Context, userID uuid.UUID) (*domain.RoomPresenceRecord, error) {
	return s.repo.GetUserStatus(ctx, userID)
}

func removeFromOrder(order []uuid.UUID, userID uuid.UUID) []uuid.UUID {
	for i, id := range order {
		if id == userID {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func clonePresence(p *domain.UserPresence) domain.UserPresence {
	c := *p
	if p.Cursor != nil {
		cursor := *p.Cursor
		c.Cursor = &cursor
	}
	return c
}
