// Package api implements the HTTP surface of the audit service.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"domainaudit/internal/service"
)

// maxBodyBytes bounds the POST /log request body. Results payloads are small
// structured blobs; anything larger is rejected before decoding.
const maxBodyBytes = 1 << 20

// Handler is the HTTP layer over the audit service. It owns no business
// logic: validation and server-side field assignment happen in the service.
type Handler struct {
	audit     *service.AuditService
	pingDB    *sql.DB
	dbTimeout time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler. pingDB is only used by the health endpoint;
// dbTimeout bounds every store operation triggered by a request.
func NewHandler(audit *service.AuditService, pingDB *sql.DB, dbTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{audit: audit, pingDB: pingDB, dbTimeout: dbTimeout, logger: logger}
}

// logRequest is the POST /log body. Only fields the schema models are read;
// client-supplied timestamp or client_origin keys are silently ignored so
// callers cannot backdate records or spoof their origin.
type logRequest struct {
	Domain  string          `json:"domain"`
	Results json.RawMessage `json:"results"`
	Email   *string         `json:"email"`
	Score   *int64          `json:"score"`
}

// HandleLog ingests one domain-check event. The acknowledgment never echoes
// stored data.
func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	_, err := h.audit.Ingest(ctx, service.IngestRequest{
		Domain:       req.Domain,
		Results:      req.Results,
		Email:        req.Email,
		Score:        req.Score,
		ClientOrigin: clientOrigin(r),
		UserAgent:    userAgent(r),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleStats answers the top-domains aggregate. An optional ?limit= query
// parameter is honored up to the configured cap.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	counts, err := h.audit.TopDomains(ctx, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// HandleHealthz reports liveness and store reachability.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	if err := h.pingDB.PingContext(ctx); err != nil {
		h.logger.Error("health check: store unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePreflight answers bare OPTIONS requests with an empty body. Browser
// preflights carrying Access-Control-Request-Method are already terminated by
// the CORS middleware before reaching this handler.
func (h *Handler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// clientOrigin returns the host part of the transport-observed remote
// address. This is the connection peer as seen by the listener, not a
// client-settable header, so it cannot be spoofed in the request body.
func clientOrigin(r *http.Request) *string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return nil
	}
	return &host
}

func userAgent(r *http.Request) *string {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return nil
	}
	return &ua
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
