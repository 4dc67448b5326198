package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"medlens/internal/domain/entity"
	handlerhttp "medlens/internal/handler/http"
	"medlens/internal/handler/http/respond"
	"medlens/internal/usecase/analyze"
	"medlens/pkg/ratelimit"
)

// ProcessHandler runs the analysis pipeline for a submitted article URL.
type ProcessHandler struct{ Svc *analyze.Service }

// ServeHTTP handles POST /workflow/process.
//
// The body is either the shorthand {"url": ...} or a full message
// envelope {conversation_id?, payload_type, payload}. The response is
// {success, message, data} where data carries the assembled analysis.
func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		failJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := buildMessage(req)
	if err != nil {
		respondError(w, err)
		return
	}

	identity := handlerhttp.ExtractIP(r)
	resp, err := h.Svc.Process(r.Context(), identity, msg)
	if err != nil {
		respondError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, processResponse{
		Success: true,
		Message: "analysis completed",
		Data: map[string]any{
			"message_id":         resp.MessageID,
			"conversation_id":    resp.ConversationID,
			"summary":            resp.Payload["summary"],
			"terminology":        resp.Payload["terminology"],
			"quality_assessment": resp.Payload["quality_assessment"],
		},
	})
}

// buildMessage converts the request body into a validated message
// envelope. The shorthand URL form becomes a url message; the envelope
// form is passed through with its declared payload kind.
func buildMessage(req processRequest) (*entity.Message, error) {
	if req.PayloadType == "" {
		if req.URL == "" {
			return nil, &entity.ValidationError{Field: "url", Message: "url is required"}
		}
		return entity.NewMessage(
			req.ConversationID,
			entity.AgentUser,
			entity.AgentArticleFetcher,
			entity.KindURL,
			map[string]any{"url": req.URL},
		)
	}

	return entity.NewMessage(
		req.ConversationID,
		entity.AgentUser,
		entity.AgentArticleFetcher,
		entity.PayloadKind(req.PayloadType),
		req.Payload,
	)
}

// respondError maps domain errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	// Admission denial: 429 with rate-limit headers from the error
	var admission *ratelimit.QuotaExceededError
	if errors.As(err, &admission) {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(admission.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(admission.ResetAtUnix(time.Now()), 10))
		w.Header().Set("Retry-After", strconv.FormatInt(admission.RetryAfterSeconds(), 10))
		failJSON(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
		return
	}

	// Upstream quota exhausted even after retries
	var upstream *entity.QuotaExceededError
	if errors.As(err, &upstream) {
		if upstream.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(upstream.RetryAfter.Seconds()), 10))
		}
		failJSON(w, http.StatusServiceUnavailable, "upstream service is rate limited, retry later")
		return
	}

	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		failJSON(w, http.StatusBadRequest, respond.SanitizeError(err))
	case errors.Is(err, entity.ErrNotFound):
		failJSON(w, http.StatusNotFound, respond.SanitizeError(err))
	case errors.Is(err, context.DeadlineExceeded):
		failJSON(w, http.StatusGatewayTimeout, "request timed out")
	default:
		var analysisErr *entity.AnalysisError
		var retryable *entity.RetryableError
		switch {
		case errors.As(err, &analysisErr):
			failJSON(w, http.StatusBadGateway, "analysis failed")
		case errors.As(err, &retryable):
			failJSON(w, http.StatusServiceUnavailable, "service temporarily unavailable, retry later")
		default:
			// Unknown failure: log sanitized details, return a generic body
			slog.Default().Error("workflow request failed",
				slog.String("error", respond.SanitizeError(err)))
			failJSON(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

// failJSON writes a failure envelope with the given status and message.
func failJSON(w http.ResponseWriter, code int, message string) {
	respond.JSON(w, code, processResponse{
		Success: false,
		Message: message,
	})
}
