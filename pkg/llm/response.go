package llm

// ErrorResponse is the JSON body returned by the API for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
