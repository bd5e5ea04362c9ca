package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	Lm "github.com/roomline/chatgate/internal/middleware"
	"github.com/roomline/chatgate/internal/pipeline"
	"github.com/roomline/chatgate/internal/store"
)

type postMessageBody struct {
	BrowserID   string            `json:"browser_id"`
	Message     string            `json:"message"`
	MessageType store.MessageType `json:"message_type"`
	Phone       string            `json:"phone,omitempty"`
	Website     string            `json:"website,omitempty"`
	Location    string            `json:"location,omitempty"`
}

// handlePostMessage implements POST /messages.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sc, ok := Lm.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "missing identity context")
		return
	}

	var body postMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}
	if body.MessageType != store.Offered && body.MessageType != store.Requested {
		writeError(w, http.StatusBadRequest, "validation_error", "message_type must be \"offered\" or \"requested\"")
		return
	}

	msg, outcome, err := s.pipeline.PostMessage(r.Context(), pipeline.PostRequest{
		Identity:    sc,
		Endpoint:    "/messages",
		BrowserID:   body.BrowserID,
		Message:     body.Message,
		MessageType: body.MessageType,
		Phone:       body.Phone,
		Website:     body.Website,
		Location:    body.Location,
	})
	if err != nil {
		log.Error().Err(err).Msg("httpserver: post message failed")
	}
	if outcome.IsError() {
		writeOutcome(w, outcome)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handleGetMessages implements GET /messages?location=<city>.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	messages, err := s.pipeline.Messages(r.Context(), location)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleContact implements GET /api/contact/:id.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	sc, ok := Lm.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "missing identity context")
		return
	}
	id := chi.URLParam(r, "id")

	msg, outcome, err := s.pipeline.RevealContact(r.Context(), sc.CompositeKey, id)
	if err != nil {
		log.Error().Err(err).Msg("httpserver: reveal contact failed")
	}
	if outcome.IsError() {
		writeOutcome(w, outcome)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"phone": msg.Phone})
}

// handleCooldown implements GET /api/cooldown.
func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	sc, ok := Lm.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "missing identity context")
		return
	}
	status, err := s.pipeline.Cooldown(r.Context(), sc.CompositeKey)
	if err != nil {
		log.Warn().Err(err).Msg("httpserver: cooldown check failed, reporting can_post=true")
	}
	writeJSON(w, http.StatusOK, status)
}

type reportBody struct {
	MessageID         string `json:"message_id"`
	ReportedBrowserID string `json:"reported_browser_id"`
}

// handleReport implements POST /api/report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sc, ok := Lm.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "missing identity context")
		return
	}
	var body reportBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}
	if body.MessageID == "" || body.ReportedBrowserID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "message_id and reported_browser_id are required")
		return
	}

	result, outcome, err := s.pipeline.Report(r.Context(), body.MessageID, body.ReportedBrowserID, sc)
	if err != nil {
		log.Error().Err(err).Msg("httpserver: report processing failed")
	}
	if outcome.IsError() {
		writeOutcome(w, outcome)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       result.Success,
		"message":       "report recorded",
		"reports_on_ip": result.ReportsOnIP,
	})
}

type trackVisitorBody struct {
	City string `json:"city,omitempty"`
}

// handleTrackVisitor implements POST /api/track-visitor.
func (s *Server) handleTrackVisitor(w http.ResponseWriter, r *http.Request) {
	sc, ok := Lm.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "missing identity context")
		return
	}
	var body trackVisitorBody
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.City == "" {
		body.City = r.URL.Query().Get("city")
	}

	if err := s.pipeline.TrackVisitor(r.Context(), sc.IPAddress, sc.Fingerprint, body.City); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to record visitor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleDailyStats implements GET /api/stats/daily.
func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	daily, err := s.pipeline.DailyStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load daily stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unique_ips":     daily.UniqueVisitors,
		"message_count":  daily.MessageCount,
	})
}

// handleCityStats implements GET /api/stats/cities.
func (s *Server) handleCityStats(w http.ResponseWriter, r *http.Request) {
	cities, err := s.pipeline.CityStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load city stats")
		return
	}
	out := make([]map[string]interface{}, 0, len(cities))
	for _, c := range cities {
		out = append(out, map[string]interface{}{
			"city":          c.City,
			"views":         c.Views,
			"daily_average": c.DailyAverage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
