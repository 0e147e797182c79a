package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// QuestionAnalysis aggregates all submissions for one question.
type QuestionAnalysis struct {
	QuestionNumber int     `json:"questionNumber"`
	QuestionText   string  `json:"questionText"`
	CorrectAnswer  string  `json:"correctAnswer"` // option letter A-D
	CorrectCount   int     `json:"correctCount"`
	TotalAnswered  int     `json:"totalAnswered"`
	SuccessRate    float64 `json:"successRate"` // percent
	OptionCounts   [4]int  `json:"optionCounts"`
}

// RoomAnalysis is the aggregate quiz report.
type RoomAnalysis struct {
	Room              RoomStatus         `json:"room"`
	TotalParticipants int                `json:"totalParticipants"`
	TotalQuestions    int                `json:"totalQuestions"`
	AverageScore      float64            `json:"averageScore"`
	Questions         []QuestionAnalysis `json:"questions"`
	TopScorers        []Result           `json:"topScorers"`
}

// ParticipantExport is one flattened row of the export dataset.
type ParticipantExport struct {
	Username       string         `json:"username"`
	Score          int            `json:"score"`
	CorrectAnswers int            `json:"correctAnswers"`
	WrongAnswers   int            `json:"wrongAnswers"`
	TotalAnswers   int            `json:"totalAnswers"`
	SuccessRate    float64        `json:"successRate"`
	Answers        []AnswerExport `json:"answers"`
}

// AnswerExport renders a single answer with the option letter.
type AnswerExport struct {
	QuestionNumber int     `json:"questionNumber"`
	SelectedAnswer string  `json:"selectedAnswer"` // option letter A-D
	IsCorrect      bool    `json:"isCorrect"`
	Points         int     `json:"points"`
	TimeSpent      float64 `json:"timeSpent"`
}

// ExportData is the flattened results dataset handed to export clients.
// Spreadsheet rendering stays on the client side.
type ExportData struct {
	Title             string              `json:"title"`
	AdminUsername     string              `json:"adminUsername"`
	RoomCode          string              `json:"roomCode"`
	TotalQuestions    int                 `json:"totalQuestions"`
	TotalParticipants int                 `json:"totalParticipants"`
	AverageScore      float64             `json:"averageScore"`
	CompletedAt       time.Time           `json:"completedAt"`
	Results           []Result            `json:"results"`
	Participants      []ParticipantExport `json:"participants"`
	Questions         []QuestionAnalysis  `json:"questions"`
}

// QuizRecord is the archival snapshot written when a quiz finishes.
type QuizRecord struct {
	RoomID     string    `json:"roomId"`
	RoomCode   string    `json:"roomCode"`
	Title      string    `json:"title"`
	Results    []Result  `json:"results"`
	FinishedAt time.Time `json:"finishedAt"`
}

func optionLetter(idx int) string {
	if idx < 0 || idx > 3 {
		return "?"
	}
	return string(rune('A' + idx))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// InterimResults ranks the current roster without ending the quiz. Used for
// live standings while Results is still empty.
func (r *Room) InterimResults() []Result {
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
	return results
}

func (r *Room) analyzeQuestion(idx int) QuestionAnalysis {
	q := r.Questions[idx]
	analysis := QuestionAnalysis{
		QuestionNumber: idx + 1,
		QuestionText:   q.Text,
		CorrectAnswer:  optionLetter(q.CorrectAnswer),
	}
	for _, p := range r.Participants {
		for _, a := range p.Answers {
			if a.QuestionIndex != idx {
				continue
			}
			analysis.TotalAnswered++
			if a.SelectedAnswer >= 0 && a.SelectedAnswer <= 3 {
				analysis.OptionCounts[a.SelectedAnswer]++
			}
			if a.IsCorrect {
				analysis.CorrectCount++
			}
		}
	}
	if analysis.TotalAnswered > 0 {
		analysis.SuccessRate = round1(float64(analysis.CorrectCount) / float64(analysis.TotalAnswered) * 100)
	}
	return analysis
}

func (r *Room) averageScore() float64 {
	if len(r.Participants) == 0 {
		return 0
	}
	sum := 0
	for _, p := range r.Participants {
		sum += p.Score
	}
	return round1(float64(sum) / float64(len(r.Participants)))
}

// Analyze builds the per-question and aggregate report.
func (r *Room) Analyze() RoomAnalysis {
	questions := make([]QuestionAnalysis, 0, len(r.Questions))
	for i := range r.Questions {
		questions = append(questions, r.analyzeQuestion(i))
	}
	top := r.InterimResults()
	if len(top) > 5 {
		top = top[:5]
	}
	return RoomAnalysis{
		Room:              r.Status(),
		TotalParticipants: len(r.Participants),
		TotalQuestions:    len(r.Questions),
		AverageScore:      r.averageScore(),
		Questions:         questions,
		TopScorers:        top,
	}
}

// Export flattens the room into the downloadable dataset and records who
// pulled it. Works both mid-quiz and after finish: final Results win when
// present, otherwise the interim standings are used.
func (r *Room) Export(by string) ExportData {
	results := r.Results
	if len(results) == 0 {
		results = r.InterimResults()
	}

	participants := make([]ParticipantExport, 0, len(r.Participants))
	for _, p := range r.Participants {
		correct := 0
		answers := make([]AnswerExport, 0, len(p.Answers))
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			}
			answers = append(answers, AnswerExport{
				QuestionNumber: a.QuestionIndex + 1,
				SelectedAnswer: optionLetter(a.SelectedAnswer),
				IsCorrect:      a.IsCorrect,
				Points:         a.Points,
				TimeSpent:      a.TimeSpent,
			})
		}
		pe := ParticipantExport{
			Username:       p.Username,
			Score:          p.Score,
			CorrectAnswers: correct,
			WrongAnswers:   len(p.Answers) - correct,
			TotalAnswers:   len(p.Answers),
			Answers:        answers,
		}
		if len(p.Answers) > 0 {
			pe.SuccessRate = round1(float64(correct) / float64(len(p.Answers)) * 100)
		}
		participants = append(participants, pe)
	}

	questions := make([]QuestionAnalysis, 0, len(r.Questions))
	for i := range r.Questions {
		questions = append(questions, r.analyzeQuestion(i))
	}

	avg := 0.0
	if len(results) > 0 {
		sum := 0
		for _, res := range results {
			sum += res.Score
		}
		avg = round1(float64(sum) / float64(len(results)))
	}

	now := r.now()
	r.Downloaded = true
	r.DownloadedAt = now
	r.DownloadedBy = by

	return ExportData{
		Title:             r.Title,
		AdminUsername:     r.AdminUsername,
		RoomCode:          r.Code,
		TotalQuestions:    len(r.Questions),
		TotalParticipants: len(results),
		AverageScore:      avg,
		CompletedAt:       now,
		Results:           results,
		Participants:      participants,
		Questions:         questions,
	}
}

// ExportFilename names the download after the room code and date.
func (r *Room) ExportFilename() string {
	return fmt.Sprintf("Quiz_%s_%s.xlsx", r.Code, r.now().Format("2006-01-02"))
}

// Record snapshots the finished quiz for archival stores.
func (r *Room) Record() QuizRecord {
	return QuizRecord{
		RoomID:     r.ID,
		RoomCode:   r.Code,
		Title:      r.Title,
		Results:    r.Results,
		FinishedAt: r.now(),
	}
}
