package contact

import "time"

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

const (
	StatusSent   = "sent"
	StatusLogged = "logged"
)

type Receipt struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	ProviderID string    `json:"providerId,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
