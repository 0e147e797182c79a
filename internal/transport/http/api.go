package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// APIHandler exposes the request/response mirror of the quiz operations.
type APIHandler struct {
	service *app.QuizService
	logger  *zap.Logger
}

func NewAPIHandler(service *app.QuizService, logger *zap.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

// Register wires every route onto the engine.
func (h *APIHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rooms := r.Group("/api/rooms")
	{
		rooms.POST("", h.createRoom)
		rooms.POST("/join", h.joinRoom)
		rooms.GET("", h.listRooms)
		rooms.GET("/active", h.listActiveRooms)
		rooms.GET("/:roomId", h.roomDetail)
		rooms.GET("/code/:roomCode", h.roomByCode)
		rooms.POST("/:roomId/questions", h.addQuestion)
		rooms.DELETE("/:roomId", h.deleteRoom)
	}

	quiz := r.Group("/api/quiz")
	{
		quiz.POST("/:roomId/start", h.startQuiz)
		quiz.POST("/:roomId/next", h.nextQuestion)
		quiz.POST("/:roomId/finish", h.finishQuiz)
		quiz.POST("/:roomId/restart", h.restartQuiz)
		quiz.GET("/:roomId/current-question", h.currentQuestion)
		quiz.GET("/:roomId/results", h.results)
		quiz.GET("/:roomId/analysis", h.analysis)
		quiz.GET("/:roomId/stats", h.stats)
		quiz.POST("/:roomId/kick", h.kickParticipant)
		quiz.GET("/:roomId/export", h.exportResults)
	}
}

type questionRequest struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Points        int      `json:"points"`
	TimeLimit     int      `json:"timeLimit"`
}

func (q questionRequest) toInput() (domain.QuestionInput, bool) {
	if len(q.Options) != 4 {
		return domain.QuestionInput{}, false
	}
	var options [4]string
	copy(options[:], q.Options)
	return domain.QuestionInput{
		Text:          q.Text,
		Options:       options,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		TimeLimit:     q.TimeLimit,
	}, true
}

type createRoomRequest struct {
	Title         string            `json:"title"`
	AdminUsername string            `json:"adminUsername"`
	Questions     []questionRequest `json:"questions"`
}

func (h *APIHandler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	questions := make([]domain.QuestionInput, 0, len(req.Questions))
	for _, q := range req.Questions {
		if in, ok := q.toInput(); ok {
			questions = append(questions, in)
		}
	}
	created, err := h.service.CreateRoom(req.Title, req.AdminUsername, questions)
	if err != nil {
		Fail(c, err)
		return
	}
	h.logger.Info("room created",
		zap.String("room_code", created.RoomCode),
		zap.String("admin", req.AdminUsername))
	Created(c, fmt.Sprintf("Room created! Code: %s", created.RoomCode), created)
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

func (h *APIHandler) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	check, err := h.service.JoinPrecheck(req.RoomCode, req.Username)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, fmt.Sprintf("You can join %s!", check.Room.Title), check)
}

func (h *APIHandler) listRooms(c *gin.Context) {
	rooms := h.service.ListRooms()
	OK(c, fmt.Sprintf("%d rooms found", len(rooms)), gin.H{"rooms": rooms, "total": len(rooms)})
}

func (h *APIHandler) listActiveRooms(c *gin.Context) {
	rooms := h.service.ListActive()
	OK(c, fmt.Sprintf("%d active rooms", len(rooms)), gin.H{"rooms": rooms, "total": len(rooms)})
}

func (h *APIHandler) roomDetail(c *gin.Context) {
	detail, err := h.service.Detail(c.Param("roomId"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Room details", detail)
}

func (h *APIHandler) roomByCode(c *gin.Context) {
	status, err := h.service.ByCode(c.Param("roomCode"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Room found", status)
}

func (h *APIHandler) addQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in, ok := req.toInput()
	if !ok {
		FailMsg(c, http.StatusBadRequest, "exactly 4 options are required")
		return
	}
	added, err := h.service.AddQuestion(c.Param("roomId"), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Question added", added)
}

func (h *APIHandler) deleteRoom(c *gin.Context) {
	if err := h.service.DeleteRoom(c.Param("roomId")); err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Room deleted", nil)
}

type adminRequest struct {
	AdminUsername string `json:"adminUsername"`
}

func (h *APIHandler) startQuiz(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	started, err := h.service.StartQuiz(c.Param("roomId"), req.AdminUsername)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Quiz started", started)
}

func (h *APIHandler) nextQuestion(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	advanced, err := h.service.NextQuestion(c.Param("roomId"), req.AdminUsername)
	if err != nil {
		Fail(c, err)
		return
	}
	msg := "Next question"
	if advanced.Finished {
		msg = "Quiz completed"
	}
	OK(c, msg, advanced)
}

func (h *APIHandler) finishQuiz(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	finished, err := h.service.FinishQuiz(c.Param("roomId"), req.AdminUsername)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Quiz finished", finished)
}

func (h *APIHandler) restartQuiz(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	detail, err := h.service.RestartQuiz(c.Param("roomId"), req.AdminUsername)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Quiz reset, ready to start again", detail)
}

func (h *APIHandler) currentQuestion(c *gin.Context) {
	view, err := h.service.CurrentQuestion(c.Param("roomId"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Current question", view)
}

func (h *APIHandler) results(c *gin.Context) {
	standings, err := h.service.Results(c.Param("roomId"))
	if err != nil {
		Fail(c, err)
		return
	}
	msg := "Final results"
	if standings.IsActive {
		msg = "Interim standings"
	}
	OK(c, msg, standings)
}

func (h *APIHandler) analysis(c *gin.Context) {
	report, err := h.service.Analysis(c.Param("roomId"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Quiz analysis", report)
}

func (h *APIHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Param("roomId"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Quiz statistics", stats)
}

type kickRequest struct {
	AdminUsername string `json:"adminUsername"`
	Username      string `json:"username"`
}

func (h *APIHandler) kickParticipant(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailMsg(c, http.StatusBadRequest, "invalid request body")
		return
	}
	kicked, err := h.service.KickParticipant(c.Param("roomId"), req.AdminUsername, req.Username)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, fmt.Sprintf("%s removed from the room", kicked.Removed.Username), kicked)
}

func (h *APIHandler) exportResults(c *gin.Context) {
	export, err := h.service.ExportResults(c.Param("roomId"), c.Query("adminUsername"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, "Export data ready", export)
}
