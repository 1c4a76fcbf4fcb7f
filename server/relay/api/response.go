package api

// UploadResponse carries the short code a client types on the receiving
// side.
type UploadResponse struct {
	UniqueID string `json:"uniqueId"`
}

// RetrieveResponse carries a transfer's text and, when a file was uploaded,
// the filename and the id used against the download endpoint. Absent fields
// are omitted.
type RetrieveResponse struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
	FileID   string `json:"file_id,omitempty"`
}
