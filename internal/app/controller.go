package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quizroom-service/internal/domain"
)

// RevealDelay is the fixed pause of the two-phase protocol: between the
// start announcement and the first question, and between an answer reveal
// and the next question. Protocol constant, not per-room configuration.
const RevealDelay = 3 * time.Second

// Controller maps real-time client events onto Room entity operations and
// decides what to broadcast to whom. One instance serves all rooms.
type Controller struct {
	rooms    RoomRegistry
	sessions SessionDirectory
	archive  *Archiver
	logger   *zap.Logger
	delay    time.Duration
	now      func() time.Time
}

// NewController wires the controller with the protocol reveal delay.
func NewController(rooms RoomRegistry, sessions SessionDirectory, archive *Archiver, logger *zap.Logger) *Controller {
	return NewControllerWithDelay(rooms, sessions, archive, logger, RevealDelay)
}

// NewControllerWithDelay is test-only: it shortens the reveal delay so
// timed transitions can be observed without real waiting.
func NewControllerWithDelay(rooms RoomRegistry, sessions SessionDirectory, archive *Archiver, logger *zap.Logger, delay time.Duration) *Controller {
	return &Controller{
		rooms:    rooms,
		sessions: sessions,
		archive:  archive,
		logger:   logger,
		delay:    delay,
		now:      time.Now,
	}
}

func (c *Controller) fail(client Client, msg string) {
	client.Send(Event{Type: EventError, Payload: ErrorPayload{Message: msg}})
}

func (c *Controller) failErr(client Client, err error) {
	c.fail(client, err.Error())
}

// Join handles the identify-and-join handshake. Admins attach to the
// broadcast group without becoming participants; everyone else goes through
// the Room entity's roster.
func (c *Controller) Join(client Client, roomCode, username string, isAdmin bool) {
	cleaned, err := domain.ValidateUsername(username)
	if err != nil {
		c.failErr(client, err)
		return
	}

	rs, ok := c.rooms.ByCode(domain.NormalizeRoomCode(roomCode))
	if !ok {
		c.failErr(client, domain.ErrRoomNotFound)
		return
	}

	// A connection belongs to at most one room. Re-joining detaches it from
	// its previous group first, so no room keeps a dead send channel around.
	// Must happen before taking the room lock: the previous room may be this
	// one.
	if _, ok := c.sessions.Get(client.ID()); ok {
		c.Disconnect(client)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room

	if room.IsStarted && !isAdmin {
		c.failErr(client, domain.ErrQuizAlreadyStarted)
		return
	}

	if isAdmin {
		// Authority is granted only when the claimed name matches the
		// room's stored admin exactly.
		if room.AdminUsername != cleaned {
			c.fail(client, "admin authority could not be verified")
			return
		}
		rs.attachLocked(client)
		c.sessions.Put(&domain.Session{
			ConnID:     client.ID(),
			Username:   cleaned,
			IsAdmin:    true,
			RoomCode:   room.Code,
			LastActive: c.now(),
		})
		client.Send(Event{Type: EventAdminConnected, Payload: AdminConnectedPayload{
			Message:      fmt.Sprintf("Welcome to the admin panel of %s!", room.Title),
			Room:         room.Status(),
			Questions:    room.Questions,
			Participants: room.Roster(),
		}})
		c.logger.Info("admin connected",
			zap.String("room_code", room.Code),
			zap.String("username", cleaned))
		return
	}

	participant, err := room.AddParticipant(cleaned, client.ID())
	if err != nil {
		c.failErr(client, err)
		return
	}
	rs.attachLocked(client)
	c.sessions.Put(&domain.Session{
		ConnID:     client.ID(),
		Username:   cleaned,
		RoomCode:   room.Code,
		LastActive: c.now(),
	})

	client.Send(Event{Type: EventRoomJoined, Payload: RoomJoinedPayload{
		Message: fmt.Sprintf("Welcome to %s!", room.Title),
		Room:    room.Status(),
		Participant: domain.ParticipantInfo{
			Username:    participant.Username,
			Score:       participant.Score,
			IsConnected: true,
		},
	}})
	rs.broadcastOthersLocked(client.ID(), Event{Type: EventParticipantJoined, Payload: ParticipantChangePayload{
		Username:         participant.Username,
		ParticipantCount: len(room.Participants),
	}})
	rs.broadcastLocked(Event{Type: EventParticipantsUpdated, Payload: RosterPayload{
		Participants: room.Roster(),
	}})
	c.logger.Info("participant joined",
		zap.String("room_code", room.Code),
		zap.String("username", cleaned))
}

// adminSession resolves and authorizes the caller for quiz-control actions:
// the session must be flagged admin AND its username must match the room's
// stored admin. Both checks, not either.
func (c *Controller) adminSession(client Client, room *domain.Room) (*domain.Session, error) {
	sess, ok := c.sessions.Get(client.ID())
	if !ok || !sess.IsAdmin {
		return nil, domain.ErrNotAdmin
	}
	if room.AdminUsername != sess.Username {
		return nil, domain.ErrNotAdmin
	}
	c.sessions.Touch(client.ID(), c.now())
	return sess, nil
}

// Start begins the quiz: everyone learns it started immediately, then the
// first question arrives after the fixed reveal delay so clients can run
// their countdown.
func (c *Controller) Start(client Client, roomID string) {
	rs, ok := c.rooms.ByID(roomID)
	if !ok {
		c.failErr(client, domain.ErrRoomNotFound)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room

	sess, err := c.adminSession(client, room)
	if err != nil {
		c.failErr(client, err)
		return
	}

	first, err := room.StartQuiz()
	if err != nil {
		c.failErr(client, err)
		return
	}

	rs.broadcastLocked(Event{Type: EventQuizStarted, Payload: QuizStartedPayload{
		Message:        "Quiz started!",
		Room:           room.Status(),
		FirstQuestion:  first,
		TotalQuestions: len(room.Questions),
	}})

	rs.scheduleLocked(c.delay, func() {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if !room.IsActive {
			return
		}
		view, err := room.CurrentQuestionView()
		if err != nil {
			return
		}
		rs.broadcastLocked(Event{Type: EventNewQuestion, Payload: NewQuestionPayload{
			Question:       view,
			QuestionNumber: view.QuestionNumber,
			TotalQuestions: view.TotalQuestions,
			TimeLimit:      view.TimeLimit,
		}})
	})

	c.logger.Info("quiz started",
		zap.String("room_code", room.Code),
		zap.String("admin", sess.Username))
}

// Submit records an answer: private ack to the submitter, progress counter
// to everyone else.
func (c *Controller) Submit(client Client, roomID string, answerIndex int, timeSpent float64) {
	sess, ok := c.sessions.Get(client.ID())
	if !ok {
		c.fail(client, "user not found")
		return
	}
	c.sessions.Touch(client.ID(), c.now())

	rs, ok := c.rooms.ByID(roomID)
	if !ok {
		c.failErr(client, domain.ErrRoomNotFound)
		return
	}

	// Range check before delegating into the entity.
	if answerIndex < 0 || answerIndex > 3 {
		c.failErr(client, domain.ErrInvalidAnswer)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room

	participant, answer, points, err := room.SubmitAnswer(client.ID(), answerIndex, timeSpent)
	if err != nil {
		c.failErr(client, err)
		return
	}

	msg := "Wrong answer!"
	if points > 0 {
		msg = fmt.Sprintf("Correct! +%d points", points)
	}
	client.Send(Event{Type: EventAnswerSubmitted, Payload: AnswerSubmittedPayload{
		Message:        msg,
		IsCorrect:      answer.IsCorrect,
		Points:         points,
		TotalScore:     participant.Score,
		SelectedAnswer: answerIndex,
	}})

	rs.broadcastOthersLocked(client.ID(), Event{Type: EventAnswerStats, Payload: AnswerStatsPayload{
		AnsweredCount:     room.AnsweredCount(),
		TotalParticipants: len(room.Participants),
		Username:          sess.Username,
	}})
}

// Next runs the reveal-then-advance sequence: show the correct answer to
// everyone now, then after the fixed delay either deliver the next question
// or finish the quiz.
func (c *Controller) Next(client Client, roomID string) {
	rs, ok := c.rooms.ByID(roomID)
	if !ok {
		c.failErr(client, domain.ErrRoomNotFound)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room

	if _, err := c.adminSession(client, room); err != nil {
		c.failErr(client, err)
		return
	}
	if !room.IsActive {
		c.failErr(client, domain.ErrQuizNotActive)
		return
	}

	current, ok := room.CurrentQuestion()
	if ok {
		rs.broadcastLocked(Event{Type: EventShowCorrectAnswer, Payload: ShowCorrectAnswerPayload{
			CorrectAnswer: current.CorrectAnswer,
			CorrectOption: current.Options[current.CorrectAnswer],
		}})
	}

	rs.scheduleLocked(c.delay, func() {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if !room.IsActive {
			return
		}
		view, more := room.NextQuestion()
		if more {
			rs.broadcastLocked(Event{Type: EventNewQuestion, Payload: NewQuestionPayload{
				Question:       view,
				QuestionNumber: view.QuestionNumber,
				TotalQuestions: view.TotalQuestions,
				TimeLimit:      view.TimeLimit,
			}})
			return
		}
		c.finishLocked(rs, "Quiz completed!")
	})
}

// Finish is the explicit early-termination path: no delay, results now.
func (c *Controller) Finish(client Client, roomID string) {
	rs, ok := c.rooms.ByID(roomID)
	if !ok {
		c.failErr(client, domain.ErrRoomNotFound)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room

	if _, err := c.adminSession(client, room); err != nil {
		c.failErr(client, err)
		return
	}
	if !room.IsActive {
		c.failErr(client, domain.ErrQuizNotActive)
		return
	}
	c.finishLocked(rs, "Quiz ended!")
}

// finishLocked finalizes the quiz, cancels any pending reveal so it cannot
// fire into the finished state, broadcasts results and hands the snapshot
// to the archiver.
func (c *Controller) finishLocked(rs *RoomSession, msg string) {
	room := rs.room
	results := room.FinishQuiz()
	rs.cancelTimersLocked()
	rs.broadcastLocked(Event{Type: EventQuizFinished, Payload: QuizFinishedPayload{
		Message: msg,
		Results: results,
		Room:    room.Status(),
	}})
	c.archive.Store(room.Record())
	c.logger.Info("quiz finished",
		zap.String("room_code", room.Code),
		zap.Int("participants", len(results)))
}

// Disconnect cleans up after a dropped connection: the participant is fully
// removed from the roster (a rejoin starts over) and the session record is
// deleted. A connection with no session is a silent no-op.
func (c *Controller) Disconnect(client Client) {
	sess, ok := c.sessions.Get(client.ID())
	if !ok {
		return
	}

	if sess.RoomCode != "" {
		if rs, found := c.rooms.ByCode(sess.RoomCode); found {
			rs.mu.Lock()
			rs.detachLocked(client.ID())
			room := rs.room
			if removed := room.RemoveParticipant(client.ID()); removed != nil {
				rs.broadcastLocked(Event{Type: EventParticipantLeft, Payload: ParticipantChangePayload{
					Username:         removed.Username,
					ParticipantCount: len(room.Participants),
				}})
				rs.broadcastLocked(Event{Type: EventParticipantsUpdated, Payload: RosterPayload{
					Participants: room.Roster(),
				}})
				c.logger.Info("participant left",
					zap.String("room_code", room.Code),
					zap.String("username", removed.Username))
			}
			rs.mu.Unlock()
		}
	}
	c.sessions.Delete(client.ID())
}

// Ping answers a connection-health check.
func (c *Controller) Ping(client Client) {
	c.sessions.Touch(client.ID(), c.now())
	client.Send(Event{Type: EventPong, Payload: PongPayload{Timestamp: c.now().UnixMilli()}})
}

// IsStateError reports whether err belongs to the recoverable taxonomy, as
// opposed to an unexpected fault that should be logged with detail.
func IsStateError(err error) bool {
	for _, known := range []error{
		domain.ErrRoomNotFound, domain.ErrParticipantNotFound, domain.ErrDuplicateUsername,
		domain.ErrRoomFull, domain.ErrQuizAlreadyStarted, domain.ErrQuizNotActive,
		domain.ErrQuizActive, domain.ErrNoQuestions, domain.ErrNoActiveQuestion,
		domain.ErrInvalidQuestion, domain.ErrInvalidAnswer, domain.ErrAlreadyAnswered,
		domain.ErrInvalidUsername, domain.ErrInvalidTitle, domain.ErrNotAdmin,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
