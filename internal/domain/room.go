package domain

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCodeLength is the size of the human-typable join key.
const RoomCodeLength = 6

// GenerateRoomCode produces a 6-character uppercase alphanumeric join key.
// Uniqueness among live rooms is the registry's job.
func GenerateRoomCode(rnd *rand.Rand) string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rnd.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// Settings holds per-room quiz defaults.
type Settings struct {
	QuestionTime    int `json:"questionTime"`    // seconds per question unless overridden
	MaxParticipants int `json:"maxParticipants"` // roster cap
}

// DefaultSettings mirrors the documented defaults: 20s per question, 50 seats.
func DefaultSettings() Settings {
	return Settings{QuestionTime: 20, MaxParticipants: 50}
}

// Question is a four-option MCQ with exactly one correct index.
type Question struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Options       [4]string `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"` // 0..3
	Points        int       `json:"points"`
	TimeLimit     int       `json:"timeLimit"` // seconds, advisory for clients
}

// Answer records one submission. Immutable once appended.
type Answer struct {
	QuestionID     string    `json:"questionId"`
	QuestionIndex  int       `json:"questionIndex"`
	SelectedAnswer int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	Points         int       `json:"points"`
	TimeSpent      float64   `json:"timeSpent"` // seconds
	AnsweredAt     time.Time `json:"answeredAt"`
}

// Participant is a joined non-admin user with score and answer history.
type Participant struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	ConnID      string    `json:"-"`
	Score       int       `json:"score"`
	Answers     []Answer  `json:"answers"`
	IsConnected bool      `json:"isConnected"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Result is one row of the final scoreboard, populated by FinishQuiz.
type Result struct {
	Username       string `json:"username"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalAnswers   int    `json:"totalAnswers"`
	Rank           int    `json:"rank"`
}

// QuestionView is the client-safe projection of the current question.
// It never carries the correct-answer index.
type QuestionView struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Options        [4]string `json:"options"`
	TimeLimit      int       `json:"timeLimit"`
	QuestionNumber int       `json:"questionNumber"` // 1-based
	TotalQuestions int       `json:"totalQuestions"`
}

// ParticipantInfo is the roster entry broadcast to clients.
type ParticipantInfo struct {
	Username    string `json:"username"`
	Score       int    `json:"score"`
	IsConnected bool   `json:"isConnected"`
}

// RoomStatus is the read-only summary used by listings and broadcasts.
type RoomStatus struct {
	ID               string    `json:"id"`
	Code             string    `json:"roomCode"`
	Title            string    `json:"title"`
	AdminUsername    string    `json:"adminUsername"`
	ParticipantCount int       `json:"participantCount"`
	QuestionCount    int       `json:"questionCount"`
	CurrentQuestion  int       `json:"currentQuestion"` // 1-based
	IsActive         bool      `json:"isActive"`
	IsStarted        bool      `json:"isStarted"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Room owns one quiz session's questions, roster, cursor and lifecycle.
// It is pure state transition logic; callers serialize access.
type Room struct {
	ID            string
	Code          string
	Title         string
	AdminUsername string
	Questions     []Question
	Participants  []*Participant
	CurrentIndex  int
	IsStarted     bool
	IsActive      bool
	Results       []Result
	Settings      Settings
	CreatedAt     time.Time

	Downloaded   bool
	DownloadedAt time.Time
	DownloadedBy string

	now func() time.Time
}

// NewRoom builds a ready-state room. The code comes from the registry,
// which guarantees uniqueness among live rooms.
func NewRoom(title, adminUsername, code string, settings Settings) *Room {
	return NewRoomWithClock(title, adminUsername, code, settings, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(title, adminUsername, code string, settings Settings, now func() time.Time) *Room {
	if settings.QuestionTime <= 0 {
		settings.QuestionTime = DefaultSettings().QuestionTime
	}
	if settings.MaxParticipants <= 0 {
		settings.MaxParticipants = DefaultSettings().MaxParticipants
	}
	return &Room{
		ID:            uuid.NewString(),
		Code:          code,
		Title:         title,
		AdminUsername: adminUsername,
		Settings:      settings,
		CreatedAt:     now(),
		now:           now,
	}
}

// QuestionInput is the payload for AddQuestion before validation.
type QuestionInput struct {
	Text          string
	Options       [4]string
	CorrectAnswer int
	Points        int
	TimeLimit     int
}

// AddQuestion validates and appends a question. The bank is append-only
// before start and frozen afterwards.
func (r *Room) AddQuestion(in QuestionInput) (Question, error) {
	if r.IsStarted {
		return Question{}, ErrQuizAlreadyStarted
	}
	if len(strings.TrimSpace(in.Text)) < 5 {
		return Question{}, ErrInvalidQuestion
	}
	for _, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return Question{}, ErrInvalidQuestion
		}
	}
	if in.CorrectAnswer < 0 || in.CorrectAnswer > 3 {
		return Question{}, ErrInvalidQuestion
	}
	points := in.Points
	if points == 0 {
		points = 100
	}
	limit := in.TimeLimit
	if limit <= 0 {
		limit = r.Settings.QuestionTime
	}
	q := Question{
		ID:            uuid.NewString(),
		Text:          strings.TrimSpace(in.Text),
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Points:        points,
		TimeLimit:     limit,
	}
	r.Questions = append(r.Questions, q)
	return q, nil
}

// AddParticipant registers a new participant. Usernames are stored
// case-sensitively but must be unique case-insensitively.
func (r *Room) AddParticipant(username, connID string) (*Participant, error) {
	if len(r.Participants) >= r.Settings.MaxParticipants {
		return nil, ErrRoomFull
	}
	for _, p := range r.Participants {
		if strings.EqualFold(p.Username, username) {
			return nil, ErrDuplicateUsername
		}
	}
	p := &Participant{
		ID:          uuid.NewString(),
		Username:    username,
		ConnID:      connID,
		IsConnected: true,
		JoinedAt:    r.now(),
	}
	r.Participants = append(r.Participants, p)
	return p, nil
}

// RemoveParticipant drops the participant bound to connID and returns it,
// or nil when the connection never joined. Departure loses the score; a
// rejoin starts from zero.
func (r *Room) RemoveParticipant(connID string) *Participant {
	for i, p := range r.Participants {
		if p.ConnID == connID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return p
		}
	}
	return nil
}

// RemoveParticipantByName is the kick path; lookup is by exact username.
func (r *Room) RemoveParticipantByName(username string) *Participant {
	for i, p := range r.Participants {
		if p.Username == username {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return p
		}
	}
	return nil
}

// FindParticipant returns the participant bound to connID.
func (r *Room) FindParticipant(connID string) (*Participant, bool) {
	for _, p := range r.Participants {
		if p.ConnID == connID {
			return p, true
		}
	}
	return nil, false
}

// StartQuiz moves ready -> active and returns the first question view.
func (r *Room) StartQuiz() (QuestionView, error) {
	if r.IsStarted {
		return QuestionView{}, ErrQuizAlreadyStarted
	}
	if len(r.Questions) == 0 {
		return QuestionView{}, ErrNoQuestions
	}
	r.IsStarted = true
	r.IsActive = true
	r.CurrentIndex = 0
	return r.questionView(0), nil
}

// SubmitAnswer scores one submission. The participant update, the recorded
// answer and the awarded points are applied together or not at all.
func (r *Room) SubmitAnswer(connID string, answerIndex int, timeSpent float64) (*Participant, Answer, int, error) {
	if !r.IsActive {
		return nil, Answer{}, 0, ErrQuizNotActive
	}
	if answerIndex < 0 || answerIndex > 3 {
		return nil, Answer{}, 0, ErrInvalidAnswer
	}
	p, ok := r.FindParticipant(connID)
	if !ok {
		return nil, Answer{}, 0, ErrParticipantNotFound
	}
	if r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Questions) {
		return nil, Answer{}, 0, ErrNoActiveQuestion
	}
	for _, a := range p.Answers {
		if a.QuestionIndex == r.CurrentIndex {
			return nil, Answer{}, 0, ErrAlreadyAnswered
		}
	}

	q := r.Questions[r.CurrentIndex]
	isCorrect := answerIndex == q.CorrectAnswer

	// Faster correct answers earn a time bonus on top of the base points.
	points := 0
	if isCorrect {
		bonus := float64(q.TimeLimit) - timeSpent
		if bonus < 0 {
			bonus = 0
		}
		points = int(math.Round(float64(q.Points) + bonus*5))
	}

	answer := Answer{
		QuestionID:     q.ID,
		QuestionIndex:  r.CurrentIndex,
		SelectedAnswer: answerIndex,
		IsCorrect:      isCorrect,
		Points:         points,
		TimeSpent:      timeSpent,
		AnsweredAt:     r.now(),
	}
	p.Answers = append(p.Answers, answer)
	p.Score += points
	return p, answer, points, nil
}

// NextQuestion advances the cursor. The second return value is false when
// the bank is exhausted; ending the quiz is the caller's explicit action.
func (r *Room) NextQuestion() (QuestionView, bool) {
	if r.CurrentIndex >= len(r.Questions)-1 {
		return QuestionView{}, false
	}
	r.CurrentIndex++
	return r.questionView(r.CurrentIndex), true
}

// FinishQuiz moves active -> finished and computes the final scoreboard.
// Sorting is a stable descending sort by score: ties keep join order.
func (r *Room) FinishQuiz() []Result {
	r.IsActive = false

	results := make([]Result, 0, len(r.Participants))
	for _, p := range r.Participants {
		correct := 0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		results = append(results, Result{
			Username:       p.Username,
			Score:          p.Score,
			CorrectAnswers: correct,
			TotalAnswers:   len(p.Answers),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	r.Results = results
	return results
}

// Restart moves finished -> ready: clears results, scores, answers and the
// cursor while keeping code, title, admin and the question bank.
func (r *Room) Restart() error {
	if r.IsActive {
		return ErrQuizActive
	}
	r.CurrentIndex = 0
	r.IsStarted = false
	r.IsActive = false
	r.Results = nil
	for _, p := range r.Participants {
		p.Score = 0
		p.Answers = nil
	}
	return nil
}

// CurrentQuestionView returns the client-safe view of the active question.
func (r *Room) CurrentQuestionView() (QuestionView, error) {
	if r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Questions) {
		return QuestionView{}, ErrNoActiveQuestion
	}
	return r.questionView(r.CurrentIndex), nil
}

// CurrentQuestion exposes the full active question, correct index included.
// Only the reveal broadcast may use it.
func (r *Room) CurrentQuestion() (Question, bool) {
	if r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[r.CurrentIndex], true
}

func (r *Room) questionView(idx int) QuestionView {
	q := r.Questions[idx]
	return QuestionView{
		ID:             q.ID,
		Text:           q.Text,
		Options:        q.Options,
		TimeLimit:      q.TimeLimit,
		QuestionNumber: idx + 1,
		TotalQuestions: len(r.Questions),
	}
}

// AnsweredCount reports how many participants answered the current question.
func (r *Room) AnsweredCount() int {
	count := 0
	for _, p := range r.Participants {
		for _, a := range p.Answers {
			if a.QuestionIndex == r.CurrentIndex {
				count++
				break
			}
		}
	}
	return count
}

// Roster is the broadcast-friendly participant list in join order.
func (r *Room) Roster() []ParticipantInfo {
	infos := make([]ParticipantInfo, 0, len(r.Participants))
	for _, p := range r.Participants {
		infos = append(infos, ParticipantInfo{
			Username:    p.Username,
			Score:       p.Score,
			IsConnected: p.IsConnected,
		})
	}
	return infos
}

// Status returns the read-only summary for listings and broadcasts.
func (r *Room) Status() RoomStatus {
	return RoomStatus{
		ID:               r.ID,
		Code:             r.Code,
		Title:            r.Title,
		AdminUsername:    r.AdminUsername,
		ParticipantCount: len(r.Participants),
		QuestionCount:    len(r.Questions),
		CurrentQuestion:  r.CurrentIndex + 1,
		IsActive:         r.IsActive,
		IsStarted:        r.IsStarted,
		CreatedAt:        r.CreatedAt,
	}
}
