package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

const testDelay = 20 * time.Millisecond

type fakeClient struct {
	id     string
	mu     sync.Mutex
	events []app.Event
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Send(ev app.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *fakeClient) snapshot() []app.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]app.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeClient) count(eventType string) int {
	n := 0
	for _, ev := range c.snapshot() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (c *fakeClient) last(eventType string) (app.Event, bool) {
	events := c.snapshot()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return events[i], true
		}
	}
	return app.Event{}, false
}

// waitFor polls until the client has received an event of the given type.
func (c *fakeClient) waitFor(t *testing.T, eventType string) app.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := c.last(eventType); ok {
			return ev
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got %+v", eventType, c.snapshot())
	return app.Event{}
}

type testEnv struct {
	controller *app.Controller
	service    *app.QuizService
	rooms      *memory.RoomRegistry
}

func newTestEnv(t *testing.T, stores ...app.ResultArchiver) *testEnv {
	t.Helper()
	rooms := memory.NewRoomRegistry()
	sessions := memory.NewSessionStore()
	archiver := app.NewArchiver(zap.NewNop(), stores...)
	return &testEnv{
		controller: app.NewControllerWithDelay(rooms, sessions, archiver, zap.NewNop(), testDelay),
		service:    app.NewQuizService(rooms, archiver, domain.DefaultSettings()),
		rooms:      rooms,
	}
}

func (e *testEnv) createRoom(t *testing.T, questions int) (roomID, roomCode string) {
	t.Helper()
	inputs := make([]domain.QuestionInput, 0, questions)
	for i := 0; i < questions; i++ {
		inputs = append(inputs, domain.QuestionInput{
			Text:          "Pick the first option?",
			Options:       [4]string{"Right", "Wrong", "Wrong", "Wrong"},
			CorrectAnswer: 0,
			Points:        100,
			TimeLimit:     20,
		})
	}
	created, err := e.service.CreateRoom("Trivia Night", "Host", inputs)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return created.Room.ID, created.RoomCode
}

func TestJoinBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	_, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	env.controller.Join(admin, code, "Host", true)
	ev := admin.waitFor(t, app.EventAdminConnected)
	payload := ev.Payload.(app.AdminConnectedPayload)
	if len(payload.Questions) != 1 {
		t.Fatalf("expected admin to see the question bank, got %+v", payload)
	}

	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(alice, code, "Alice", false)
	joined := alice.waitFor(t, app.EventRoomJoined).Payload.(app.RoomJoinedPayload)
	if joined.Participant.Username != "Alice" {
		t.Fatalf("unexpected join ack: %+v", joined)
	}

	// The admin hears about the new participant; the joiner does not get the
	// participant-joined echo, only the roster update.
	admin.waitFor(t, app.EventParticipantJoined)
	alice.waitFor(t, app.EventParticipantsUpdated)
	if alice.count(app.EventParticipantJoined) != 0 {
		t.Fatalf("joiner should not receive their own participant-joined")
	}
}

func TestJoinRejections(t *testing.T) {
	env := newTestEnv(t)
	_, code := env.createRoom(t, 1)

	c := &fakeClient{id: "conn-1"}
	env.controller.Join(c, "ZZZZZZ", "Alice", false)
	c.waitFor(t, app.EventError)

	c2 := &fakeClient{id: "conn-2"}
	env.controller.Join(c2, code, "x", false)
	c2.waitFor(t, app.EventError)

	// Admin name must match the room's stored admin exactly.
	impostor := &fakeClient{id: "conn-3"}
	env.controller.Join(impostor, code, "Eve", true)
	impostor.waitFor(t, app.EventError)
	if impostor.count(app.EventAdminConnected) != 0 {
		t.Fatalf("impostor must not get admin access")
	}
}

func TestLateJoinRejected(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Start(admin, roomID)
	admin.waitFor(t, app.EventQuizStarted)

	late := &fakeClient{id: "conn-late"}
	env.controller.Join(late, code, "Alice", false)
	late.waitFor(t, app.EventError)
	if late.count(app.EventRoomJoined) != 0 {
		t.Fatalf("late joiner must be rejected")
	}

	// The admin can still reattach mid-quiz.
	admin2 := &fakeClient{id: "conn-admin2"}
	env.controller.Join(admin2, code, "Host", true)
	admin2.waitFor(t, app.EventAdminConnected)
}

func TestStartRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 1)

	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(alice, code, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)

	env.controller.Start(alice, roomID)
	alice.waitFor(t, app.EventError)
	if alice.count(app.EventQuizStarted) != 0 {
		t.Fatalf("participant must not start the quiz")
	}
}

func TestStartDeliversFirstQuestionAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 2)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)

	env.controller.Start(admin, roomID)
	started := alice.waitFor(t, app.EventQuizStarted).Payload.(app.QuizStartedPayload)
	if started.TotalQuestions != 2 {
		t.Fatalf("unexpected start payload: %+v", started)
	}
	if alice.count(app.EventNewQuestion) != 0 {
		t.Fatalf("first question must not arrive before the reveal delay")
	}

	q := alice.waitFor(t, app.EventNewQuestion).Payload.(app.NewQuestionPayload)
	if q.QuestionNumber != 1 || q.TotalQuestions != 2 {
		t.Fatalf("unexpected first question: %+v", q)
	}
}

func TestSubmitAckAndStats(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	bob := &fakeClient{id: "conn-bob"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Join(bob, code, "Bob", false)
	env.controller.Start(admin, roomID)
	alice.waitFor(t, app.EventNewQuestion)

	env.controller.Submit(alice, roomID, 0, 5)
	ack := alice.waitFor(t, app.EventAnswerSubmitted).Payload.(app.AnswerSubmittedPayload)
	if !ack.IsCorrect || ack.Points != 175 || ack.TotalScore != 175 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	stats := bob.waitFor(t, app.EventAnswerStats).Payload.(app.AnswerStatsPayload)
	if stats.AnsweredCount != 1 || stats.TotalParticipants != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if alice.count(app.EventAnswerStats) != 0 {
		t.Fatalf("submitter must not receive the stats broadcast")
	}

	// Second submission to the same question is rejected.
	env.controller.Submit(alice, roomID, 1, 6)
	alice.waitFor(t, app.EventError)
	if got := alice.count(app.EventAnswerSubmitted); got != 1 {
		t.Fatalf("expected single ack, got %d", got)
	}
}

func TestNextRevealsThenAdvances(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 2)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Start(admin, roomID)
	alice.waitFor(t, app.EventNewQuestion)

	env.controller.Next(admin, roomID)
	reveal := alice.waitFor(t, app.EventShowCorrectAnswer).Payload.(app.ShowCorrectAnswerPayload)
	if reveal.CorrectAnswer != 0 || reveal.CorrectOption != "Right" {
		t.Fatalf("unexpected reveal: %+v", reveal)
	}

	deadline := time.Now().Add(2 * time.Second)
	for alice.count(app.EventNewQuestion) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	q, _ := alice.last(app.EventNewQuestion)
	payload := q.Payload.(app.NewQuestionPayload)
	if payload.QuestionNumber != 2 {
		t.Fatalf("expected second question, got %+v", payload)
	}
}

func TestNextOnLastQuestionFinishes(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Start(admin, roomID)
	alice.waitFor(t, app.EventNewQuestion)
	env.controller.Submit(alice, roomID, 0, 5)

	env.controller.Next(admin, roomID)
	finished := alice.waitFor(t, app.EventQuizFinished).Payload.(app.QuizFinishedPayload)
	if len(finished.Results) != 1 || finished.Results[0].Rank != 1 {
		t.Fatalf("unexpected results: %+v", finished.Results)
	}
	if finished.Room.IsActive {
		t.Fatalf("room must be inactive after finish")
	}
}

func TestFinishCancelsPendingAdvance(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 2)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Start(admin, roomID)
	alice.waitFor(t, app.EventNewQuestion)

	// Queue the reveal-then-advance, then finish before the delay elapses.
	env.controller.Next(admin, roomID)
	env.controller.Finish(admin, roomID)
	alice.waitFor(t, app.EventQuizFinished)

	time.Sleep(3 * testDelay)
	if got := alice.count(app.EventNewQuestion); got != 1 {
		t.Fatalf("cancelled advance still fired, saw %d questions", got)
	}
	if got := alice.count(app.EventQuizFinished); got != 1 {
		t.Fatalf("expected a single finish broadcast, got %d", got)
	}
}

func TestFinishArchivesResults(t *testing.T) {
	store := &recordingArchiver{records: make(chan domain.QuizRecord, 1)}
	env := newTestEnv(t, store)
	roomID, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Start(admin, roomID)
	env.controller.Finish(admin, roomID)

	select {
	case record := <-store.records:
		if record.RoomID != roomID || record.RoomCode != code {
			t.Fatalf("unexpected record: %+v", record)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("archive never received the record")
	}
}

func TestDisconnectRemovesParticipant(t *testing.T) {
	env := newTestEnv(t)
	_, code := env.createRoom(t, 1)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)

	env.controller.Disconnect(alice)
	left := admin.waitFor(t, app.EventParticipantLeft).Payload.(app.ParticipantChangePayload)
	if left.Username != "Alice" || left.ParticipantCount != 0 {
		t.Fatalf("unexpected leave broadcast: %+v", left)
	}

	// Departure is forgetful: the same name rejoins from zero.
	alice2 := &fakeClient{id: "conn-alice2"}
	env.controller.Join(alice2, code, "Alice", false)
	joined := alice2.waitFor(t, app.EventRoomJoined).Payload.(app.RoomJoinedPayload)
	if joined.Participant.Score != 0 {
		t.Fatalf("rejoin must start from zero, got %+v", joined.Participant)
	}

	// Disconnecting an unknown connection is a no-op.
	env.controller.Disconnect(&fakeClient{id: "conn-ghost"})
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	_, code := env.createRoom(t, 1)

	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(alice, code, "Alice", false)
	env.controller.Ping(alice)
	pong := alice.waitFor(t, app.EventPong).Payload.(app.PongPayload)
	if pong.Timestamp == 0 {
		t.Fatalf("expected pong timestamp")
	}
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	env := newTestEnv(t)
	roomAID, codeA := env.createRoom(t, 1)
	_, codeB := env.createRoom(t, 1)

	adminA := &fakeClient{id: "conn-admin-a"}
	env.controller.Join(adminA, codeA, "Host", true)
	adminA.waitFor(t, app.EventAdminConnected)

	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(alice, codeA, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)

	env.controller.Join(alice, codeB, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)

	// The first room saw the departure and no longer counts the participant.
	left := adminA.waitFor(t, app.EventParticipantLeft).Payload.(app.ParticipantChangePayload)
	if left.Username != "Alice" || left.ParticipantCount != 0 {
		t.Fatalf("unexpected leave broadcast: %+v", left)
	}
	detail, err := env.service.Detail(roomAID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Participants) != 0 {
		t.Fatalf("first room still has %d participant(s)", len(detail.Participants))
	}
}

func TestJoinSecondRoomDetachesFromFirstBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	roomAID, codeA := env.createRoom(t, 1)
	_, codeB := env.createRoom(t, 1)

	adminA := &fakeClient{id: "conn-admin-a"}
	env.controller.Join(adminA, codeA, "Host", true)
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(alice, codeA, "Alice", false)
	alice.waitFor(t, app.EventRoomJoined)
	env.controller.Join(alice, codeB, "Alice", false)

	bob := &fakeClient{id: "conn-bob"}
	env.controller.Join(bob, codeA, "Bob", false)
	bob.waitFor(t, app.EventRoomJoined)

	env.controller.Start(adminA, roomAID)
	bob.waitFor(t, app.EventQuizStarted)
	bob.waitFor(t, app.EventNewQuestion)

	// The moved connection only ever hears from its current room.
	if alice.count(app.EventQuizStarted) != 0 || alice.count(app.EventNewQuestion) != 0 {
		t.Fatalf("first room still broadcasts to the moved connection: %+v", alice.snapshot())
	}
}

func TestRejoinSameRoomReplacesParticipant(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 1)

	bob := &fakeClient{id: "conn-bob"}
	env.controller.Join(bob, code, "Bob", false)
	bob.waitFor(t, app.EventRoomJoined)

	// Same connection, new name: the old roster entry goes away.
	env.controller.Join(bob, code, "Bobby", false)
	deadline := time.Now().Add(2 * time.Second)
	for bob.count(app.EventRoomJoined) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	detail, err := env.service.Detail(roomID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Participants) != 1 || detail.Participants[0].Username != "Bobby" {
		t.Fatalf("unexpected roster after rejoin: %+v", detail.Participants)
	}
}

// TestFullQuizScenario plays a two-question quiz end to end: join, start,
// a fast correct answer, advance, a wrong answer, early finish.
func TestFullQuizScenario(t *testing.T) {
	env := newTestEnv(t)
	roomID, code := env.createRoom(t, 2)

	admin := &fakeClient{id: "conn-admin"}
	alice := &fakeClient{id: "conn-alice"}
	env.controller.Join(admin, code, "Host", true)
	env.controller.Join(alice, code, "Alice", false)

	env.controller.Start(admin, roomID)
	alice.waitFor(t, app.EventNewQuestion)

	env.controller.Submit(alice, roomID, 0, 5)
	ack := alice.waitFor(t, app.EventAnswerSubmitted).Payload.(app.AnswerSubmittedPayload)
	if ack.Points != 175 {
		t.Fatalf("expected 175 on the first question, got %+v", ack)
	}

	env.controller.Next(admin, roomID)
	deadline := time.Now().Add(2 * time.Second)
	for alice.count(app.EventNewQuestion) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	env.controller.Submit(alice, roomID, 1, 3)
	env.controller.Finish(admin, roomID)
	finished := alice.waitFor(t, app.EventQuizFinished).Payload.(app.QuizFinishedPayload)
	if len(finished.Results) != 1 {
		t.Fatalf("expected one result, got %+v", finished.Results)
	}
	// Only the first question's points count; the second answer was wrong.
	r := finished.Results[0]
	if r.Rank != 1 || r.Score != 175 || r.CorrectAnswers != 1 || r.TotalAnswers != 2 {
		t.Fatalf("unexpected final row: %+v", r)
	}
}

type recordingArchiver struct {
	records chan domain.QuizRecord
}

func (a *recordingArchiver) ArchiveResults(ctx context.Context, record domain.QuizRecord) error {
	select {
	case a.records <- record:
	default:
	}
	return nil
}
