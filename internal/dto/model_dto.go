package dto

type ModelDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}

type ListModelsResponse struct {
	Models []ModelDTO `json:"models"`
}

type PingResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
}
