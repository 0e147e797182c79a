package domain

import "time"

// Session is the ephemeral record for one live connection. It weakly
// references its room by code only and dies with the connection.
type Session struct {
	ConnID     string
	Username   string
	IsAdmin    bool
	RoomCode   string
	LastActive time.Time
}
