package core

import "time"

// Lead is a validated contact submission.
type Lead struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Company         string    `json:"company,omitempty"`
	ServiceType     string    `json:"service_type,omitempty"`
	SimulationTypes []string  `json:"simulation_types,omitempty"`
	Message         string    `json:"message,omitempty"`
	ClientID        string    `json:"client_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
