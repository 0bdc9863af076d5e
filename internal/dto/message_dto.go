package dto

// IndexDocumentMessage is the payload of one boot-ingestion index job.
type IndexDocumentMessage struct {
	Path string `json:"path"`
}
