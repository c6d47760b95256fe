package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sumatoshi-tech/commitflow/internal/ingest"
	"github.com/Sumatoshi-tech/commitflow/internal/ledger"
	"github.com/Sumatoshi-tech/commitflow/internal/signature"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
	"github.com/Sumatoshi-tech/commitflow/internal/webhook"
)

// Signature and delivery-id headers, following the GitHub webhook convention.
const (
	headerSignature  = "X-Hub-Signature-256"
	headerDeliveryID = "X-Delivery-ID"
)

const defaultCommitListLimit = 50

// payloadStatus values recorded on the ingest metrics.
const (
	statusAccepted     = "accepted"
	statusUnauthorized = "unauthorized"
	statusNotFound     = "not_found"
	statusInvalid      = "invalid"
	statusError        = "error"
)

func (s *Server) handleWebhook(c *gin.Context) {
	started := time.Now()
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		s.recordPayload(c, provider, statusError, started)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read body"})

		return
	}

	summary, err := s.deps.Pipeline.ProcessDelivery(c.Request.Context(), ingest.Delivery{
		Provider:        provider,
		DeliveryID:      c.GetHeader(headerDeliveryID),
		Body:            body,
		SignatureHeader: c.GetHeader(headerSignature),
	})
	if err != nil {
		status, label := classifyError(err)

		s.recordPayload(c, provider, label, started)
		s.deps.Logger.Warn("payload rejected",
			"provider", provider, "status", status, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})

		return
	}

	s.recordPayload(c, provider, statusAccepted, started)
	c.JSON(http.StatusAccepted, summary)
}

func (s *Server) recordPayload(c *gin.Context, provider, status string, started time.Time) {
	if s.deps.Metrics == nil {
		return
	}

	s.deps.Metrics.RecordPayload(c.Request.Context(), provider, status, time.Since(started))
}

// classifyError maps pipeline failures to HTTP statuses. Authentication and
// unknown-project failures are the caller's fault; everything else is ours.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, signature.ErrBadSignature):
		return http.StatusUnauthorized, statusUnauthorized
	case errors.Is(err, store.ErrProjectNotFound):
		return http.StatusNotFound, statusNotFound
	case errors.Is(err, webhook.ErrInvalidPayload):
		return http.StatusBadRequest, statusInvalid
	default:
		return http.StatusInternalServerError, statusError
	}
}

func (s *Server) handleContributors(c *gin.Context) {
	project, ok := s.projectByKey(c)
	if !ok {
		return
	}

	entries, err := s.deps.Store.ListLedger(c.Request.Context(), project.ID)
	if err != nil {
		s.serverError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":      project.Key,
		"contributors": ledger.Rank(entries),
	})
}

func (s *Server) handleTasks(c *gin.Context) {
	project, ok := s.projectByKey(c)
	if !ok {
		return
	}

	tasks, err := s.deps.Store.ListTasks(c.Request.Context(), project.ID)
	if err != nil {
		s.serverError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project.Key, "tasks": tasks})
}

func (s *Server) handleCommits(c *gin.Context) {
	project, ok := s.projectByKey(c)
	if !ok {
		return
	}

	limit := defaultCommitListLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	commits, err := s.deps.Store.ListCommits(c.Request.Context(), project.ID, limit)
	if err != nil {
		s.serverError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project.Key, "commits": commits})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) projectByKey(c *gin.Context) (*store.Project, bool) {
	project, err := s.deps.Store.ProjectByKey(c.Request.Context(), c.Param("key"))

	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown project"})

		return nil, false
	case err != nil:
		s.serverError(c, err)

		return nil, false
	}

	return project, true
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.deps.Logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
