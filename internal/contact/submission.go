// Package contact validates contact form submissions and hands the resulting
// leads to storage and notification channels.
package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation messages returned to the site as-is.
const (
	MsgNameTooShort  = "Name must be at least 2 characters"
	MsgInvalidEmail  = "Valid email is required"
	MsgProcessFailed = "Failed to process submission"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission is the contact form payload.
type Submission struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Company         string   `json:"company,omitempty"`
	ServiceType     string   `json:"serviceType,omitempty"`
	SimulationTypes []string `json:"simulationTypes,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// ValidationError reports a submission the visitor must correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the required fields.
func (s Submission) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(s.Name)) < 2 {
		return &ValidationError{Field: "name", Message: MsgNameTooShort}
	}
	if !emailPattern.MatchString(strings.TrimSpace(s.Email)) {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	return nil
}

// Normalize trims free-text fields and drops empty simulation types.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Company = strings.TrimSpace(s.Company)
	s.ServiceType = strings.TrimSpace(s.ServiceType)
	s.Message = strings.TrimSpace(s.Message)

	types := make([]string, 0, len(s.SimulationTypes))
	for _, t := range s.SimulationTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	s.SimulationTypes = types
	return s
}
