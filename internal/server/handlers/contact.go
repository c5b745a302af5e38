package handlers

import (
	"errors"
	"net/http"

	"github.com/ixra/ixra-api/internal/chat"
	"github.com/ixra/ixra-api/internal/contact"
)

type contactResponse struct {
	Success bool `json:"success"`
}

// ContactHandler serves POST /api/contact.
type ContactHandler struct {
	Service      *contact.Service
	MaxBodyBytes int64
}

// NewContactHandler wires the handler to a contact service.
func NewContactHandler(svc *contact.Service, maxBodyBytes int64) *ContactHandler {
	return &ContactHandler{Service: svc, MaxBodyBytes: maxBodyBytes}
}

func (h *ContactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	if err := decodeJSON(w, r, h.MaxBodyBytes, &sub); err != nil {
		writeDecodeError(w, err)
		return
	}

	_, err := h.Service.Submit(r.Context(), sub, chat.ClientIdentifier(r.Header))
	if err != nil {
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, contact.MsgProcessFailed)
		return
	}

	writeJSON(w, http.StatusOK, contactResponse{Success: true})
}
