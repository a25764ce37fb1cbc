// Package api exposes the intake pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/identity"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/intake"
	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/logging"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// AuthConfig is the public OAuth client configuration served to frontends.
type AuthConfig struct {
	ClientID  string
	ProjectID string
}

// MarshalJSON writes unset values as null so a frontend can tell
// "not configured" apart from an empty id.
func (a AuthConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ClientID  *string `json:"client_id"`
		ProjectID *string `json:"project_id"`
	}{nullable(a.ClientID), nullable(a.ProjectID)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Handler provides HTTP endpoints for transaction intake.
type Handler struct {
	pipeline   *intake.Pipeline
	authConfig AuthConfig
	backend    string
}

// NewHandler creates a new intake handler. backend names the active store for /health.
func NewHandler(pipeline *intake.Pipeline, authConfig AuthConfig, backend string) *Handler {
	return &Handler{pipeline: pipeline, authConfig: authConfig, backend: backend}
}

// RegisterRoutes sets up all intake routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/transactions", h.CreateTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.DELETE("/transactions", h.ClearTransactions)
	r.POST("/auth/verify", h.VerifyToken)
	r.GET("/auth/config", h.AuthConfig)
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.backend})
}

// CreateTransaction handles POST /transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	creds := identity.Credentials{
		Authorization: c.GetHeader("Authorization"),
		User:          c.GetHeader("X-User"),
	}

	rec, err := h.pipeline.CreateTransaction(c.Request.Context(), creds, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// ListTransactions handles GET /transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := parseLimit(c, defaultListLimit, maxListLimit)
	items := h.pipeline.ListTransactions(c.Request.Context(), limit, c.GetHeader("X-User"))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ClearTransactions handles DELETE /transactions
func (h *Handler) ClearTransactions(c *gin.Context) {
	if err := h.pipeline.ClearTransactions(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type verifyRequest struct {
	IDToken string `json:"id_token"`
}

// VerifyToken handles POST /auth/verify. Debug aid that returns the decoded claims.
func (h *Handler) VerifyToken(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Missing id_token in body",
		})
		return
	}

	claims, err := h.pipeline.VerifyToken(c.Request.Context(), req.IDToken)
	if err != nil {
		logging.L(c.Request.Context(), nil).Info("token verify failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Token verification failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "payload": claims})
}

// AuthConfig handles GET /auth/config
func (h *Handler) AuthConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.authConfig)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, intake.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, identity.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": err.Error()})
	case errors.Is(err, identity.ErrInvalidToken):
		logging.L(c.Request.Context(), nil).Info("token verification failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": "Invalid ID token"})
	case errors.Is(err, interfaces.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
	}
}

func parseLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	return limit
}
