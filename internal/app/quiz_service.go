package app

import (
	"strings"

	"quizroom-service/internal/domain"
)

// QuizService mirrors the controller's operations for clients that poll
// over plain requests instead of holding a live connection. It delegates
// into the same Room entities; it deliberately does not broadcast.
type QuizService struct {
	rooms    RoomRegistry
	archive  *Archiver
	defaults domain.Settings
}

// NewQuizService builds the request/response facade.
func NewQuizService(rooms RoomRegistry, archive *Archiver, defaults domain.Settings) *QuizService {
	return &QuizService{rooms: rooms, archive: archive, defaults: defaults}
}

// CreatedRoom is the creation response: the join code is the piece the
// admin actually needs.
type CreatedRoom struct {
	Room     domain.RoomStatus `json:"room"`
	RoomCode string            `json:"roomCode"`
}

// CreateRoom validates inputs, allocates the room and adds any inline
// questions. Malformed inline questions are skipped, not fatal.
func (s *QuizService) CreateRoom(title, adminUsername string, questions []domain.QuestionInput) (CreatedRoom, error) {
	cleanTitle, err := domain.ValidateRoomTitle(title)
	if err != nil {
		return CreatedRoom{}, err
	}
	cleanAdmin, err := domain.ValidateUsername(adminUsername)
	if err != nil {
		return CreatedRoom{}, err
	}

	rs := s.rooms.Create(cleanTitle, cleanAdmin, s.defaults)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, q := range questions {
		_, _ = rs.room.AddQuestion(sanitizeQuestion(q))
	}
	return CreatedRoom{Room: rs.room.Status(), RoomCode: rs.room.Code}, nil
}

// sanitizeQuestion applies the API-edge cleanup: trimming, caps on text and
// option length, points clamped to [10,1000].
func sanitizeQuestion(in domain.QuestionInput) domain.QuestionInput {
	in.Text = truncate(strings.TrimSpace(in.Text), 500)
	for i := range in.Options {
		in.Options[i] = truncate(strings.TrimSpace(in.Options[i]), 200)
	}
	if in.Points != 0 {
		if in.Points < 10 {
			in.Points = 10
		}
		if in.Points > 1000 {
			in.Points = 1000
		}
	}
	return in
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// JoinCheck is the pre-join probe result for polling clients.
type JoinCheck struct {
	Room     domain.RoomStatus `json:"room"`
	Username string            `json:"username"`
}

// JoinPrecheck verifies that a join would succeed without performing it:
// room exists, quiz not started, username valid and free.
func (s *QuizService) JoinPrecheck(roomCode, username string) (JoinCheck, error) {
	cleaned, err := domain.ValidateUsername(username)
	if err != nil {
		return JoinCheck{}, err
	}
	rs, ok := s.rooms.ByCode(domain.NormalizeRoomCode(roomCode))
	if !ok {
		return JoinCheck{}, domain.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.IsStarted {
		return JoinCheck{}, domain.ErrQuizAlreadyStarted
	}
	for _, p := range room.Participants {
		if strings.EqualFold(p.Username, cleaned) {
			return JoinCheck{}, domain.ErrDuplicateUsername
		}
	}
	return JoinCheck{Room: room.Status(), Username: cleaned}, nil
}

// RoomDetail is the full admin-facing view, correct answers included.
type RoomDetail struct {
	Room         domain.RoomStatus        `json:"room"`
	Questions    []domain.Question        `json:"questions"`
	Participants []domain.ParticipantInfo `json:"participants"`
	Results      []domain.Result          `json:"results"`
}

// Detail returns the full room view by id.
func (s *QuizService) Detail(roomID string) (RoomDetail, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return RoomDetail{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	return RoomDetail{
		Room:         room.Status(),
		Questions:    room.Questions,
		Participants: room.Roster(),
		Results:      room.Results,
	}, nil
}

// ByCode returns the public room summary for a join code.
func (s *QuizService) ByCode(roomCode string) (domain.RoomStatus, error) {
	rs, ok := s.rooms.ByCode(domain.NormalizeRoomCode(roomCode))
	if !ok {
		return domain.RoomStatus{}, domain.ErrRoomNotFound
	}
	return rs.Status(), nil
}

// AddedQuestion reports the stored question and the new bank size.
type AddedQuestion struct {
	Question       domain.Question `json:"question"`
	TotalQuestions int             `json:"totalQuestions"`
}

// AddQuestion appends a validated question to a not-yet-started room.
func (s *QuizService) AddQuestion(roomID string, in domain.QuestionInput) (AddedQuestion, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return AddedQuestion{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	q, err := rs.room.AddQuestion(sanitizeQuestion(in))
	if err != nil {
		return AddedQuestion{}, err
	}
	return AddedQuestion{Question: q, TotalQuestions: len(rs.room.Questions)}, nil
}

// DeleteRoom removes a room; a running quiz refuses deletion.
func (s *QuizService) DeleteRoom(roomID string) error {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if rs.QuizActive() {
		return domain.ErrQuizActive
	}
	s.rooms.Delete(roomID)
	return nil
}

// ListRooms snapshots every live room.
func (s *QuizService) ListRooms() []domain.RoomStatus {
	return s.rooms.All()
}

// ListActive snapshots rooms with a running quiz.
func (s *QuizService) ListActive() []domain.RoomStatus {
	return s.rooms.Active()
}

// StartedQuiz is the request/response start result.
type StartedQuiz struct {
	Room          domain.RoomStatus        `json:"room"`
	FirstQuestion domain.QuestionView      `json:"firstQuestion"`
	Participants  []domain.ParticipantInfo `json:"participants"`
}

// StartQuiz begins the quiz over the polling surface. Unlike the live path
// it also requires a non-empty roster.
func (s *QuizService) StartQuiz(roomID, adminUsername string) (StartedQuiz, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return StartedQuiz{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return StartedQuiz{}, domain.ErrNotAdmin
	}
	if len(room.Participants) == 0 {
		return StartedQuiz{}, domain.ErrNoParticipants
	}
	first, err := room.StartQuiz()
	if err != nil {
		return StartedQuiz{}, err
	}
	return StartedQuiz{Room: room.Status(), FirstQuestion: first, Participants: room.Roster()}, nil
}

// Advanced is the request/response next-question result. When the bank is
// exhausted the quiz is finished in the same call.
type Advanced struct {
	Finished bool                 `json:"finished"`
	Question *domain.QuestionView `json:"question,omitempty"`
	Results  []domain.Result      `json:"results,omitempty"`
	Room     domain.RoomStatus    `json:"room"`
}

// NextQuestion advances immediately; the polling surface has no reveal
// pause, that contract belongs to the live protocol.
func (s *QuizService) NextQuestion(roomID, adminUsername string) (Advanced, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return Advanced{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return Advanced{}, domain.ErrNotAdmin
	}
	if !room.IsActive {
		return Advanced{}, domain.ErrQuizNotActive
	}
	view, more := room.NextQuestion()
	if more {
		return Advanced{Question: &view, Room: room.Status()}, nil
	}
	results := room.FinishQuiz()
	rs.cancelTimersLocked()
	s.archive.Store(room.Record())
	return Advanced{Finished: true, Results: results, Room: room.Status()}, nil
}

// Finished is the request/response finish result.
type Finished struct {
	Results []domain.Result   `json:"results"`
	Room    domain.RoomStatus `json:"room"`
}

// FinishQuiz finalizes a running quiz.
func (s *QuizService) FinishQuiz(roomID, adminUsername string) (Finished, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return Finished{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return Finished{}, domain.ErrNotAdmin
	}
	if !room.IsActive {
		return Finished{}, domain.ErrQuizNotActive
	}
	results := room.FinishQuiz()
	rs.cancelTimersLocked()
	s.archive.Store(room.Record())
	return Finished{Results: results, Room: room.Status()}, nil
}

// RestartQuiz resets a finished (or never-started) quiz back to ready.
func (s *QuizService) RestartQuiz(roomID, adminUsername string) (RoomDetail, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return RoomDetail{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return RoomDetail{}, domain.ErrNotAdmin
	}
	if err := room.Restart(); err != nil {
		return RoomDetail{}, err
	}
	rs.cancelTimersLocked()
	return RoomDetail{
		Room:         room.Status(),
		Questions:    room.Questions,
		Participants: room.Roster(),
	}, nil
}

// CurrentQuestion returns the client-safe active question.
func (s *QuizService) CurrentQuestion(roomID string) (domain.QuestionView, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return domain.QuestionView{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if !room.IsActive {
		return domain.QuestionView{}, domain.ErrQuizNotActive
	}
	return room.CurrentQuestionView()
}

// Standings reports final results after finish, interim standings while the
// quiz still runs.
type Standings struct {
	Results         []domain.Result `json:"results"`
	IsActive        bool            `json:"isActive"`
	CurrentQuestion int             `json:"currentQuestion"`
	TotalQuestions  int             `json:"totalQuestions"`
}

// Results returns the scoreboard for a room.
func (s *QuizService) Results(roomID string) (Standings, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return Standings{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	standings := Standings{
		IsActive:        room.IsActive,
		CurrentQuestion: room.CurrentIndex + 1,
		TotalQuestions:  len(room.Questions),
	}
	if room.IsActive || len(room.Results) == 0 {
		standings.Results = room.InterimResults()
	} else {
		standings.Results = room.Results
	}
	return standings, nil
}

// Analysis returns the aggregate per-question report.
func (s *QuizService) Analysis(roomID string) (domain.RoomAnalysis, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return domain.RoomAnalysis{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.Analyze(), nil
}

// Stats returns the dashboard numbers.
func (s *QuizService) Stats(roomID string) (domain.RoomStats, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return domain.RoomStats{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.Stats(), nil
}

// Kicked reports the removed participant and the remaining roster.
type Kicked struct {
	Removed   domain.ParticipantInfo   `json:"removed"`
	Remaining []domain.ParticipantInfo `json:"remaining"`
}

// KickParticipant removes a participant by username, admin only.
func (s *QuizService) KickParticipant(roomID, adminUsername, username string) (Kicked, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return Kicked{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return Kicked{}, domain.ErrNotAdmin
	}
	removed := room.RemoveParticipantByName(username)
	if removed == nil {
		return Kicked{}, domain.ErrParticipantNotFound
	}
	return Kicked{
		Removed:   domain.ParticipantInfo{Username: removed.Username, Score: removed.Score},
		Remaining: room.Roster(),
	}, nil
}

// Export is the flattened results dataset plus the suggested filename.
type Export struct {
	Data     domain.ExportData `json:"data"`
	Filename string            `json:"filename"`
}

// ExportResults builds the download dataset, admin only. Allowed mid-quiz:
// interim standings are exported when the quiz has not finished.
func (s *QuizService) ExportResults(roomID, adminUsername string) (Export, error) {
	rs, ok := s.rooms.ByID(roomID)
	if !ok {
		return Export{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if room.AdminUsername != adminUsername {
		return Export{}, domain.ErrNotAdmin
	}
	return Export{Data: room.Export(adminUsername), Filename: room.ExportFilename()}, nil
}
