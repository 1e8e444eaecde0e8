package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/repository"
	"mailagent/internal/agent/scheduler"
	"mailagent/internal/agent/usecase"
)

// AgentHandler serves the operator API: stats, audit trail, manual pass
// trigger and device registration.
type AgentHandler struct {
	detector    *usecase.DuplicateDetector
	actionRepo  repository.ActionRecordRepository
	summaryRepo repository.EmailSummaryRepository
	fcmRepo     repository.FCMTokenRepository
	sched       *scheduler.MailScheduler
	apiToken    string
	jwtSecret   string
}

func NewAgentHandler(
	detector *usecase.DuplicateDetector,
	actionRepo repository.ActionRecordRepository,
	summaryRepo repository.EmailSummaryRepository,
	fcmRepo repository.FCMTokenRepository,
	sched *scheduler.MailScheduler,
	apiToken, jwtSecret string,
) *AgentHandler {
	return &AgentHandler{
		detector:    detector,
		actionRepo:  actionRepo,
		summaryRepo: summaryRepo,
		fcmRepo:     fcmRepo,
		sched:       sched,
		apiToken:    apiToken,
		jwtSecret:   jwtSecret,
	}
}

// Login exchanges the static operator token for a JWT
func (h *AgentHandler) Login(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if req.Token != h.apiToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	jwtToken, err := IssueToken(h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": jwtToken, "token_type": "Bearer"})
}

// TriggerRun requests an immediate processing pass
func (h *AgentHandler) TriggerRun(c *gin.Context) {
	h.sched.Wake()
	c.JSON(http.StatusAccepted, gin.H{"status": "pass scheduled"})
}

// GetStats reports index size and today's action counts
func (h *AgentHandler) GetStats(c *gin.Context) {
	indexed, err := h.detector.IndexCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read index"})
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	duplicates, err := h.actionRepo.CountSince(domain.ActionSkip, midnight)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count actions"})
		return
	}
	autoResponses, err := h.actionRepo.CountSince(domain.ActionAutoRespond, midnight)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count actions"})
		return
	}
	notifications, err := h.actionRepo.CountSince(domain.ActionNotify, midnight)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count actions"})
		return
	}
	failures, err := h.actionRepo.CountByStatusSince(domain.ActionStatusFailed, midnight)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count actions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indexed_emails":       indexed,
		"duplicates_today":     duplicates,
		"auto_responses_today": autoResponses,
		"notifications_today":  notifications,
		"failures_today":       failures,
	})
}

// ListIndex enumerates the similarity index (ids and metadata, no vectors)
func (h *AgentHandler) ListIndex(c *gin.Context) {
	entries, err := h.detector.IndexEntries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enumerate index"})
		return
	}

	type indexEntry struct {
		ID          string    `json:"id"`
		SubjectHash string    `json:"subject_hash,omitempty"`
		Timestamp   time.Time `json:"timestamp,omitempty"`
	}
	out := make([]indexEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, indexEntry{ID: e.ID, SubjectHash: e.SubjectHash, Timestamp: e.Timestamp})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "entries": out})
}

// ListActions returns the most recent action records
func (h *AgentHandler) ListActions(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	records, err := h.actionRepo.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list actions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": records})
}

// ListSummaries returns the most recent cached email summaries
func (h *AgentHandler) ListSummaries(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	summaries, err := h.summaryRepo.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list summaries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// RegisterFCMToken registers an operator device for push notifications
func (h *AgentHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if req.Platform == "" {
		req.Platform = "web"
	}

	if err := h.fcmRepo.Save(req.Token, req.Platform); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

// UnregisterFCMToken removes an operator device
func (h *AgentHandler) UnregisterFCMToken(c *gin.Context) {
	token := c.Param("token")
	if err := h.fcmRepo.Delete(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}

func parseLimit(raw string) int {
	if raw == "" {
		return 50
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 50
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}
