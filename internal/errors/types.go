package errors

// json body of a failed http request, also used for transport-level websocket errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// the category of an error and the message clients may see
type classification struct {
	category  string
	sanitized string
}
