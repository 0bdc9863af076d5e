package dto

type DocQARequest struct {
	Question  string `json:"question" validate:"required"`
	SessionId string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

type SessionQARequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
	Model     string `json:"model,omitempty"`
}

// SourceDTO points the client at the passage a QA answer was grounded on.
// PageNumber is null for sources without pagination.
type SourceDTO struct {
	PageNumber *int   `json:"page_number"`
	Snippet    string `json:"snippet"`
}

type QAResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceDTO `json:"sources"`
}
