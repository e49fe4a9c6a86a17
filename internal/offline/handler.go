package offline

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"spendwise/internal/log"
)

// MessagePath receives control messages on the edge.
const MessagePath = "/__sw/message"

// StatusPath reports the registration state on the edge.
const StatusPath = "/__sw/status"

const maxMessageBytes = 4 << 10

// Handler is the edge proxy: requests are rewritten onto the origin and sent
// through the registration. Absolute-form requests must name the origin; the
// edge never relays to other hosts.
type Handler struct {
	origin *url.URL
	reg    *Registration
	proxy  *httputil.ReverseProxy
	logger *log.Logger
}

func NewHandler(origin *url.URL, reg *Registration, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default(log.ComponentOffline)
	}
	h := &Handler{origin: origin, reg: reg, logger: logger.WithComponent(log.ComponentOffline)}

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.Out.Host = origin.Host
			pr.SetXForwarded()
		},
		Transport: reg,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.ErrorContext(r.Context(), "Upstream request failed",
				log.FieldURL, r.URL.String(), log.FieldError, err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		},
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.IsAbs() && !h.isOrigin(r.URL) {
		h.logger.WarnContext(r.Context(), "Refused request for foreign host",
			log.FieldMethod, r.Method, log.FieldURL, r.URL.String())
		writeJSON(w, http.StatusMisdirectedRequest, map[string]string{"error": "host is not served by this edge"})
		return
	}
	if !r.URL.IsAbs() {
		switch r.URL.Path {
		case MessagePath:
			h.handleMessage(w, r)
			return
		case StatusPath:
			h.handleStatus(w, r)
			return
		}
	}
	h.proxy.ServeHTTP(w, r)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var m Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message"})
		return
	}

	err := h.reg.HandleMessage(r.Context(), m)
	switch {
	case errors.Is(err, ErrUnknownMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoController):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Control message failed",
			log.FieldOperation, log.OpMessage, log.FieldType, m.Type, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "message failed"})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok", "type": m.Type})
	}
}

func (h *Handler) isOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, h.origin.Scheme) && strings.EqualFold(u.Host, h.origin.Host)
}

type controllerStatus struct {
	Version string `json:"version"`
	State   string `json:"state"`
	Static  string `json:"static"`
	Dynamic string `json:"dynamic"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status := map[string]*controllerStatus{"active": nil, "waiting": nil}
	for name, c := range map[string]*Controller{"active": h.reg.Active(), "waiting": h.reg.Waiting()} {
		if c == nil {
			continue
		}
		status[name] = &controllerStatus{
			Version: c.Version(),
			State:   c.State().String(),
			Static:  c.StaticCache(),
			Dynamic: c.DynamicCache(),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
