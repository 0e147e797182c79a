package app

import (
	"time"

	"quizroom-service/internal/domain"
)

// RoomRegistry is the in-memory directory of live rooms, indexed by id and
// join code. Implementations own room lifetime for the process.
type RoomRegistry interface {
	Create(title, adminUsername string, settings domain.Settings) *RoomSession
	ByID(id string) (*RoomSession, bool)
	ByCode(code string) (*RoomSession, bool)
	Delete(id string) bool
	All() []domain.RoomStatus
	Active() []domain.RoomStatus
}

// SessionDirectory maps live connection ids to their session records.
type SessionDirectory interface {
	Put(s *domain.Session)
	Get(connID string) (*domain.Session, bool)
	Delete(connID string)
	Touch(connID string, at time.Time)
	Count() int
}
