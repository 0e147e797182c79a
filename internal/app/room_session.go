package app

import (
	"sync"
	"time"

	"quizroom-service/internal/domain"
)

// RoomSession pairs a Room entity with its broadcast group and pending
// timed transitions. All room mutation and event fan-out for one room
// happens under its lock, which preserves per-room event order. Rooms are
// independent; there is no cross-room locking.
type RoomSession struct {
	mu      sync.Mutex
	room    *domain.Room
	clients map[string]Client
	timers  map[*time.Timer]struct{}
}

// NewRoomSession wraps a freshly created room.
func NewRoomSession(room *domain.Room) *RoomSession {
	return &RoomSession{
		room:    room,
		clients: make(map[string]Client),
		timers:  make(map[*time.Timer]struct{}),
	}
}

// RoomID returns the immutable room identifier.
func (s *RoomSession) RoomID() string {
	return s.room.ID
}

// RoomCode returns the immutable join code.
func (s *RoomSession) RoomCode() string {
	return s.room.Code
}

// Status snapshots the room summary.
func (s *RoomSession) Status() domain.RoomStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Status()
}

// QuizActive reports whether a quiz is currently running.
func (s *RoomSession) QuizActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.IsActive
}

// attachLocked adds a connection to the broadcast group.
func (s *RoomSession) attachLocked(c Client) {
	s.clients[c.ID()] = c
}

// detachLocked removes a connection from the broadcast group.
func (s *RoomSession) detachLocked(connID string) {
	delete(s.clients, connID)
}

// broadcastLocked fans an event out to every group member.
func (s *RoomSession) broadcastLocked(ev Event) {
	for _, c := range s.clients {
		c.Send(ev)
	}
}

// broadcastOthersLocked fans an event out to everyone except one connection.
func (s *RoomSession) broadcastOthersLocked(exceptID string, ev Event) {
	for id, c := range s.clients {
		if id == exceptID {
			continue
		}
		c.Send(ev)
	}
}

// scheduleLocked registers a deferred transition. The callback runs without
// the lock and is skipped entirely if the timer was cancelled first.
func (s *RoomSession) scheduleLocked(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, pending := s.timers[t]
		delete(s.timers, t)
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
	s.timers[t] = struct{}{}
}

// cancelTimersLocked drops every pending transition. Called when the quiz
// finishes or restarts so a stale reveal cannot fire into the next state.
func (s *RoomSession) cancelTimersLocked() {
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}
