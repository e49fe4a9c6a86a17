package http

import (
	"context"
	"errors"
	"net/http"

	"spendwise/internal/install"
	"spendwise/internal/log"
)

// Install lifecycle notifications a client can post.
const (
	installEventInstallable = "installable"
	installEventInstalled   = "installed"
)

var errClientPrompt = errors.New("install prompt is shown by the client")

// clientPrompt stands for a prompt the browser holds; the server can only
// learn its outcome through /api/install/choice.
var clientPrompt = install.DeferredFunc(func(context.Context) (install.Choice, error) {
	return install.Choice{}, errClientPrompt
})

type installEventRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleInstallStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prompt.Status(r.Context()))
}

func (s *Server) handleInstallInstructions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, install.InstructionsFor(r.UserAgent()))
}

func (s *Server) handleInstallEvent(w http.ResponseWriter, r *http.Request) {
	var req installEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Type {
	case installEventInstallable:
		s.prompt.MarkInstallable(r.Context(), clientPrompt)
	case installEventInstalled:
		s.prompt.MarkInstalled(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "event type must be installable or installed")
		return
	}
	writeJSON(w, http.StatusOK, s.prompt.Status(r.Context()))
}

// handleInstallChoice records how the user answered the browser prompt.
func (s *Server) handleInstallChoice(w http.ResponseWriter, r *http.Request) {
	var c install.Choice
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !c.Outcome.IsValid() {
		writeError(w, http.StatusBadRequest, "outcome must be accepted or dismissed")
		return
	}
	writeJSON(w, http.StatusOK, s.prompt.Resolve(r.Context(), c))
}

func (s *Server) handleInstallDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.prompt.Dismiss(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to record install dismissal",
			log.FieldError, err, log.FieldOperation, log.OpInstall)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s.prompt.Status(r.Context()))
}
