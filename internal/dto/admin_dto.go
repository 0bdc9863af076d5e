package dto

type AdminLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type AdminUploadResponse struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped"`
}
