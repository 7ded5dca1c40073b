package dto

// ChatbotRequest is a single question for the awareness assistant.
type ChatbotRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// ChatbotResponse carries the assistant reply.
type ChatbotResponse struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}
