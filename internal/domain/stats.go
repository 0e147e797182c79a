package domain

// RoomStats is the lightweight dashboard projection.
type RoomStats struct {
	Title              string  `json:"title"`
	RoomCode           string  `json:"roomCode"`
	AdminUsername      string  `json:"adminUsername"`
	Status             string  `json:"status"` // waiting | active | finished
	TotalQuestions     int     `json:"totalQuestions"`
	TotalParticipants  int     `json:"totalParticipants"`
	CurrentQuestion    int     `json:"currentQuestion"` // 1-based
	QuestionsRemaining int     `json:"questionsRemaining"`
	AnsweredCurrent    int     `json:"answeredCurrent"`
	TopScorer          string  `json:"topScorer,omitempty"`
	AverageScore       float64 `json:"averageScore"`
	Downloaded         bool    `json:"downloaded"`
}

// Stats computes the dashboard numbers. Finished rooms report from the
// frozen Results; live rooms report from the roster.
func (r *Room) Stats() RoomStats {
	stats := RoomStats{
		Title:           r.Title,
		RoomCode:        r.Code,
		AdminUsername:   r.AdminUsername,
		TotalQuestions:  len(r.Questions),
		CurrentQuestion: r.CurrentIndex + 1,
		AnsweredCurrent: r.AnsweredCount(),
		Downloaded:      r.Downloaded,
	}
	switch {
	case r.IsActive:
		stats.Status = "active"
	case r.IsStarted:
		stats.Status = "finished"
	default:
		stats.Status = "waiting"
	}
	remaining := len(r.Questions) - r.CurrentIndex - 1
	if remaining < 0 {
		remaining = 0
	}
	stats.QuestionsRemaining = remaining

	if !r.IsActive && len(r.Results) > 0 {
		stats.TotalParticipants = len(r.Results)
		sum := 0
		for _, res := range r.Results {
			sum += res.Score
		}
		stats.AverageScore = round1(float64(sum) / float64(len(r.Results)))
		stats.TopScorer = r.Results[0].Username
		return stats
	}

	stats.TotalParticipants = len(r.Participants)
	stats.AverageScore = r.averageScore()
	best := -1
	for _, p := range r.Participants {
		if p.Score > best {
			best = p.Score
			stats.TopScorer = p.Username
		}
	}
	return stats
}
