package memory

import (
	"math/rand"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// RoomRegistry is the in-memory implementation of app.RoomRegistry. It owns
// every live room for the process lifetime and indexes by id and join code.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*app.RoomSession // id -> session
	codes map[string]string           // code -> id
	rnd   *rand.Rand
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*app.RoomSession),
		codes: make(map[string]string),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create allocates a room with a code that is unique among live rooms.
// Collisions in the 36^6 space are unlikely but retried, not assumed away.
func (r *RoomRegistry) Create(title, adminUsername string, settings domain.Settings) *app.RoomSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := domain.GenerateRoomCode(r.rnd)
	for _, taken := r.codes[code]; taken; _, taken = r.codes[code] {
		code = domain.GenerateRoomCode(r.rnd)
	}

	session := app.NewRoomSession(domain.NewRoom(title, adminUsername, code, settings))
	r.rooms[session.RoomID()] = session
	r.codes[code] = session.RoomID()
	return session
}

func (r *RoomRegistry) ByID(id string) (*app.RoomSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.rooms[id]
	return session, ok
}

// ByCode looks a room up by its join code. Callers normalize to uppercase.
func (r *RoomRegistry) ByCode(code string) (*app.RoomSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.codes[code]
	if !ok {
		return nil, false
	}
	session, ok := r.rooms[id]
	return session, ok
}

// Delete removes both index entries. Preconditions (no active quiz) are the
// service layer's job, not the registry's.
func (r *RoomRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.rooms[id]
	if !ok {
		return false
	}
	delete(r.codes, session.RoomCode())
	delete(r.rooms, id)
	return true
}

// All snapshots every room's status. No live references escape.
func (r *RoomRegistry) All() []domain.RoomStatus {
	r.mu.RLock()
	sessions := make([]*app.RoomSession, 0, len(r.rooms))
	for _, s := range r.rooms {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	statuses := make([]domain.RoomStatus, 0, len(sessions))
	for _, s := range sessions {
		statuses = append(statuses, s.Status())
	}
	return statuses
}

// Active snapshots rooms with a running quiz.
func (r *RoomRegistry) Active() []domain.RoomStatus {
	statuses := r.All()
	active := statuses[:0]
	for _, st := range statuses {
		if st.IsActive {
			active = append(active, st)
		}
	}
	return active
}
