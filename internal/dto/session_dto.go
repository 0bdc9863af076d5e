package dto

type UploadResponse struct {
	SessionId string `json:"session_id"`
	FileName  string `json:"file_name"`
	Chunks    int    `json:"chunks_indexed"`
}
