package diningtypes

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	System   string              `json:"system"`
	Messages []CompletionMessage `json:"messages" binding:"required,min=1,dive"`
}

// ChatResponse is the successful reply of POST /api/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is returned by the HTTP boundary on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by GET / and GET /api/reload.
type StatusResponse struct {
	Message    string `json:"message"`
	TotalItems int    `json:"total_items"`
}
