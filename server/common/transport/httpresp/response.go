package httpresp

const (
	ErrMalformedCode    = "malformed transfer code"
	ErrMalformedFileID  = "malformed file id"
	ErrTransferNotFound = "transfer not found"
	ErrFileNotFound     = "file not found"
	ErrStorageFailure   = "storage failure"
	ErrBadUpload        = "invalid upload request"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}
