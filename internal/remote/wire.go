package remote

import "github.com/conorfennell/flashsync/internal/domain"

// Request and response bodies of the server API.

type PushUpdatesRequest struct {
	Updates []domain.QuestionUpdate `json:"updates"`
}

type PushAttemptsRequest struct {
	Attempts []domain.AttemptRecord `json:"attempts"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type GameCompleteRequest struct {
	Results []domain.GameResult `json:"results" validate:"dive"`
}

type RevisionResponse struct {
	Question *domain.Question `json:"question"`
}

type GameResponse struct {
	Questions []domain.Question `json:"questions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
