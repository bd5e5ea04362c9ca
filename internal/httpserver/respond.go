package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("httpserver: failed to encode response")
	}
}

// writeOutcome translates a pipeline.Outcome into spec section 6's error
// envelope shapes. ErrorCode "Content policy violation" gets the
// content-filter shape ({error, reason}); "rate_limit_exceeded" gets the
// rate-limit shape ({error, message, retry_after, retry_after_seconds});
// everything else gets the generic {error, message} shape.
func writeOutcome(w http.ResponseWriter, o pipeline.Outcome) {
	switch o.ErrorCode {
	case "rate_limit_exceeded":
		writeJSON(w, o.Status, map[string]interface{}{
			"error":               o.ErrorCode,
			"message":             o.Message,
			"retry_after":         o.RetryAfterSeconds,
			"retry_after_seconds": o.RetryAfterSeconds,
		})
	case "Content policy violation":
		writeJSON(w, o.Status, map[string]interface{}{
			"error":  o.ErrorCode,
			"reason": o.Reason,
		})
	default:
		writeJSON(w, o.Status, map[string]interface{}{
			"error":   o.ErrorCode,
			"message": o.Message,
		})
	}
}

func writeError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSON(w, status, map[string]interface{}{"error": errorCode, "message": message})
}
