package dto

// RevalidateRequest lists cache tags to drop.
type RevalidateRequest struct {
	Tags []string `json:"tags"`
}

type RevalidateResponse struct {
	Revalidated bool     `json:"revalidated"`
	Tags        []string `json:"tags"`
	Removed     int64    `json:"removed"`
}

// ErrorResponse carries a client facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
