package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"diningguide/internal/services"
	"diningguide/internal/version"
	"diningguide/pkg/diningtypes"
)

// Handlers serves the catalog and the chat completion boundary.
type Handlers struct {
	catalog  *services.CatalogService
	provider diningtypes.CompletionProvider
	metrics  *Metrics
	log      *log.Logger
}

// NewHandlers creates a handler set.
func NewHandlers(catalog *services.CatalogService, provider diningtypes.CompletionProvider, metrics *Metrics, logger *log.Logger) *Handlers {
	return &Handlers{
		catalog:  catalog,
		provider: provider,
		metrics:  metrics,
		log:      logger,
	}
}

// Root reports the service name and catalog size.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, diningtypes.StatusResponse{
		Message:    "Dining Hall API",
		TotalItems: h.catalog.Count(),
	})
}

// Health reports catalog and provider status.
func (h *Handlers) Health(c *gin.Context) {
	catalog := gin.H{
		"source": h.catalog.Source(),
		"items":  h.catalog.Count(),
	}
	if err := h.catalog.LastError(); err != nil {
		catalog["error"] = err.Error()
	}

	provider := gin.H{"configured": false}
	if h.provider != nil {
		provider["name"] = h.provider.GetProviderName()
		provider["configured"] = h.provider.IsConfigured()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"version":  version.Current().Version,
		"catalog":  catalog,
		"provider": provider,
	})
}

// ListFoods returns the catalog, loading it on first use.
func (h *Handlers) ListFoods(c *gin.Context) {
	items, err := h.catalog.Load(c.Request.Context())
	if err != nil {
		h.log.Error("Catalog unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, diningtypes.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

// ReloadFoods re-reads the catalog source.
func (h *Handlers) ReloadFoods(c *gin.Context) {
	items, err := h.catalog.Reload(c.Request.Context())
	h.metrics.RecordCatalog(len(items), err)
	if err != nil {
		h.log.Error("Catalog reload failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, diningtypes.ErrorResponse{Error: err.Error()})
		return
	}

	h.log.Info("Catalog reloaded", "items", len(items))
	c.JSON(http.StatusOK, diningtypes.StatusResponse{
		Message:    "Data reloaded",
		TotalItems: len(items),
	})
}

// Chat completes one conversation turn with the server-held credential.
func (h *Handlers) Chat(c *gin.Context) {
	var req diningtypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, diningtypes.ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if err := validateHistory(req.Messages); err != nil {
		c.JSON(http.StatusBadRequest, diningtypes.ErrorResponse{Error: err.Error()})
		return
	}

	if h.provider == nil {
		c.JSON(http.StatusBadGateway, diningtypes.ErrorResponse{Error: "no completion provider configured"})
		return
	}

	start := time.Now()
	reply, err := h.provider.Complete(c.Request.Context(), req.System, req.Messages)
	h.metrics.RecordCompletion(h.provider.GetProviderName(), err, time.Since(start))
	if err != nil {
		ce := diningtypes.AsCompletionError(err)
		h.log.Error("Completion failed", "provider", h.provider.GetProviderName(), "error", ce)
		c.JSON(http.StatusBadGateway, diningtypes.ErrorResponse{Error: ce.Message})
		return
	}

	c.JSON(http.StatusOK, diningtypes.ChatResponse{Reply: reply})
}

func validateHistory(messages []diningtypes.CompletionMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for i, msg := range messages {
		switch msg.Role {
		case diningtypes.RoleUser, diningtypes.RoleAssistant:
		default:
			return fmt.Errorf("message %d has invalid role %q", i, msg.Role)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("message %d has empty content", i)
		}
	}
	if messages[len(messages)-1].Role != diningtypes.RoleUser {
		return fmt.Errorf("last message must come from the user")
	}
	return nil
}
