package dto

type SendChatRequest struct {
	SessionId string `json:"session_id,omitempty"`
	Message   string `json:"user_msg" validate:"required"`
	Model     string `json:"model,omitempty"`
}

type SendChatResponse struct {
	SessionId string `json:"session_id"`
	Reply     string `json:"answer"`
	Model     string `json:"model"`
}

type ProofreadRequest struct {
	Text  string `json:"text" validate:"required"`
	Model string `json:"model,omitempty"`
}

type ProofreadResponse struct {
	Corrected string `json:"corrected"`
}
