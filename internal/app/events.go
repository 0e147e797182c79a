package app

import "quizroom-service/internal/domain"

// Event is one outbound real-time message. The transport decides how to
// serialize it; the controller decides who receives it.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Outbound event types. Names are part of the wire protocol.
const (
	EventRoomJoined          = "room-joined"
	EventAdminConnected      = "admin-connected"
	EventParticipantJoined   = "participant-joined"
	EventParticipantLeft     = "participant-left"
	EventParticipantsUpdated = "participants-updated"
	EventQuizStarted         = "quiz-started"
	EventNewQuestion         = "new-question"
	EventAnswerSubmitted     = "answer-submitted"
	EventAnswerStats         = "answer-stats"
	EventShowCorrectAnswer   = "show-correct-answer"
	EventQuizFinished        = "quiz-finished"
	EventError               = "error"
	EventPong                = "pong"
)

// Client is one live connection attached to a broadcast group. Send must
// never block; slow consumers are the transport's problem.
type Client interface {
	ID() string
	Send(Event)
}

// ErrorPayload carries a human-readable failure to the originating
// connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomJoinedPayload acknowledges a successful participant join. Admin
// attaches get their own ack event instead.
type RoomJoinedPayload struct {
	Message     string                 `json:"message"`
	Room        domain.RoomStatus      `json:"room"`
	Participant domain.ParticipantInfo `json:"participant"`
}

// AdminConnectedPayload acknowledges the admin attach. Unlike participant
// views it includes the full question bank, correct answers included.
type AdminConnectedPayload struct {
	Message      string                   `json:"message"`
	Room         domain.RoomStatus        `json:"room"`
	Questions    []domain.Question        `json:"questions"`
	Participants []domain.ParticipantInfo `json:"participants"`
}

// ParticipantChangePayload announces a single join or leave.
type ParticipantChangePayload struct {
	Username         string `json:"username"`
	ParticipantCount int    `json:"participantCount"`
}

// RosterPayload rebroadcasts the full roster after any change. Full state,
// not a delta: every client converges without a reconciliation protocol.
type RosterPayload struct {
	Participants []domain.ParticipantInfo `json:"participants"`
}

// QuizStartedPayload announces the start; the first question follows
// separately after the reveal delay.
type QuizStartedPayload struct {
	Message        string              `json:"message"`
	Room           domain.RoomStatus   `json:"room"`
	FirstQuestion  domain.QuestionView `json:"firstQuestion"`
	TotalQuestions int                 `json:"totalQuestions"`
}

// NewQuestionPayload delivers a question for play.
type NewQuestionPayload struct {
	Question       domain.QuestionView `json:"question"`
	QuestionNumber int                 `json:"questionNumber"`
	TotalQuestions int                 `json:"totalQuestions"`
	TimeLimit      int                 `json:"timeLimit"`
}

// AnswerSubmittedPayload is the private ack to the submitter.
type AnswerSubmittedPayload struct {
	Message        string `json:"message"`
	IsCorrect      bool   `json:"isCorrect"`
	Points         int    `json:"points"`
	TotalScore     int    `json:"totalScore"`
	SelectedAnswer int    `json:"selectedAnswer"`
}

// AnswerStatsPayload is the lightweight progress update sent to everyone
// except the submitter.
type AnswerStatsPayload struct {
	AnsweredCount     int    `json:"answeredCount"`
	TotalParticipants int    `json:"totalParticipants"`
	Username          string `json:"username"`
}

// ShowCorrectAnswerPayload reveals the answer for the question about to be
// superseded.
type ShowCorrectAnswerPayload struct {
	CorrectAnswer int    `json:"correctAnswer"`
	CorrectOption string `json:"correctOption"`
}

// QuizFinishedPayload carries the final scoreboard.
type QuizFinishedPayload struct {
	Message string            `json:"message"`
	Results []domain.Result   `json:"results"`
	Room    domain.RoomStatus `json:"room"`
}

// PongPayload answers connection-health pings.
type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}
