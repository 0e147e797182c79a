package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room id or code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrDuplicateUsername indicates the username is already taken in the room.
	ErrDuplicateUsername = errors.New("username already taken in this room")
	// ErrRoomFull indicates the participant cap has been reached.
	ErrRoomFull = errors.New("room is full")
	// ErrQuizAlreadyStarted rejects late joins and question edits after start.
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	// ErrQuizNotActive is returned for play actions while no quiz is running.
	ErrQuizNotActive = errors.New("quiz is not active")
	// ErrQuizActive blocks destructive actions while a quiz is running.
	ErrQuizActive = errors.New("quiz is still active")
	// ErrNoQuestions is returned when starting a quiz with an empty question bank.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrNoParticipants guards the request/response start path, which
	// requires at least one joined participant.
	ErrNoParticipants = errors.New("quiz needs at least one participant")
	// ErrNoActiveQuestion indicates the cursor points at no valid question.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrInvalidQuestion covers malformed question data.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidAnswer rejects option indexes outside [0,3].
	ErrInvalidAnswer = errors.New("answer index must be between 0 and 3")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidUsername covers usernames failing length or blocklist rules.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidTitle covers room titles failing length rules.
	ErrInvalidTitle = errors.New("invalid room title")
	// ErrNotAdmin is returned when a quiz-control action comes from a
	// connection whose identity does not match the room admin.
	ErrNotAdmin = errors.New("admin authority required")
)
