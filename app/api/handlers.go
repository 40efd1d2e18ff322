package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fmaia/digesto/app/database"
	"github.com/fmaia/digesto/app/digest"
	"github.com/fmaia/digesto/app/feed"
	"github.com/fmaia/digesto/app/recipient"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/tasks"
	"github.com/fmaia/digesto/app/transport"
)

func NewHandler(recipientRepo database.RecipientRepository, deliveryRepo database.DeliveryRepository,
	registry *sources.Registry, engine *digest.Engine, cache *feed.SeenCache,
	sender transport.Sender, scheduler tasks.TaskSchedulerInterface, maxItems int) *Handler {
	return &Handler{
		recipientRepo: recipientRepo,
		deliveryRepo:  deliveryRepo,
		registry:      registry,
		engine:        engine,
		cache:         cache,
		sender:        sender,
		scheduler:     scheduler,
		maxItems:      maxItems,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.recipientRepo.Count(); err == nil {
		health["recipients"] = count
	}

	health["categories"] = h.registry.Count()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"categories": h.registry.Categories(),
		"seen_cache": map[string]interface{}{
			"size":           h.cache.Len(),
			"last_refreshed": h.cache.LastRefreshed().Format(time.RFC3339),
		},
		"sender": h.sender.Name(),
	}

	if count, err := h.recipientRepo.Count(); err == nil {
		stats["recipients"] = count
	}
	if active, err := h.recipientRepo.ListActive(); err == nil {
		stats["active_recipients"] = len(active)
	}
	if sent, err := h.deliveryRepo.CountSince(time.Now().UTC().Add(-24 * time.Hour)); err == nil {
		stats["deliveries_24h"] = sent
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListRecipients(c *gin.Context) {
	prefs, err := h.recipientRepo.List()
	if err != nil {
		slog.Error("Database error", "operation", "list_recipients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	recipients := make([]gin.H, 0, len(prefs))
	for i := range prefs {
		recipients = append(recipients, recipientJSON(&prefs[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"recipients": recipients,
		"total":      len(recipients),
	})
}

func (h *Handler) APICreateRecipient(c *gin.Context) {
	var req recipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both name and phone are required"})
		return
	}

	frequency := recipient.FrequencyDaily
	if req.Frequency != "" {
		parsed, err := recipient.ParseFrequency(req.Frequency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		frequency = parsed
	}

	pref := &recipient.Preference{
		Name:           req.Name,
		Phone:          req.Phone,
		Active:         true,
		Categories:     req.Categories,
		ExcludedTopics: req.ExcludedTopics,
		MaxItems:       req.MaxItems,
		Frequency:      frequency,
	}
	if req.Active != nil {
		pref.Active = *req.Active
	}
	pref.Normalize(h.registry, h.maxItems)

	if err := h.recipientRepo.Create(pref); err != nil {
		slog.Error("Database error", "operation", "create_recipient", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, recipientJSON(pref))
}

func (h *Handler) APIGetRecipient(c *gin.Context) {
	pref, ok := h.loadRecipient(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, recipientJSON(pref))
}

func (h *Handler) APIUpdateRecipient(c *gin.Context) {
	pref, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	var req recipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Name != "" {
		pref.Name = req.Name
	}
	if req.Phone != "" {
		pref.Phone = req.Phone
	}
	if req.Active != nil {
		pref.Active = *req.Active
	}
	if req.Categories != nil {
		pref.Categories = req.Categories
	}
	if req.ExcludedTopics != nil {
		pref.ExcludedTopics = req.ExcludedTopics
	}
	if req.MaxItems > 0 {
		pref.MaxItems = req.MaxItems
	}
	if req.Frequency != "" {
		frequency, err := recipient.ParseFrequency(req.Frequency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pref.Frequency = frequency
	}
	pref.Normalize(h.registry, h.maxItems)

	if err := h.recipientRepo.Update(pref); err != nil {
		slog.Error("Database error", "operation", "update_recipient", "id", pref.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, recipientJSON(pref))
}

func (h *Handler) APIDeleteRecipient(c *gin.Context) {
	pref, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	if err := h.recipientRepo.Delete(pref.ID); err != nil {
		slog.Error("Database error", "operation", "delete_recipient", "id", pref.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": pref.ID})
}

func (h *Handler) APISendDigest(c *gin.Context) {
	pref, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	task := tasks.NewSendDigestTask(pref.ID, h.recipientRepo, h.deliveryRepo,
		h.registry, h.engine, h.sender, h.maxItems)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing send task", "recipient", pref.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue send task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Digest delivery queued",
		"recipient": pref.ID,
		"task_id":   task.GetID(),
	})
}

func (h *Handler) APIReloadSources(c *gin.Context) {
	if err := h.registry.Load(); err != nil {
		slog.Error("Error reloading sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload sources",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Sources reloaded",
		"categories": h.registry.Categories(),
		"sources":    h.registry.Count(),
	})
}

// APIPreviewDigest renders a digest without sending it. Fetched articles
// still enter the seen cache, so previewed news will not reappear in the
// next delivery cycle.
func (h *Handler) APIPreviewDigest(c *gin.Context) {
	categories := h.registry.Categories()
	if raw := c.Query("categories"); raw != "" {
		categories = strings.Split(raw, ",")
	}

	maxItems := h.maxItems
	if raw := c.Query("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max parameter"})
			return
		}
		maxItems = parsed
	}

	pref := &recipient.Preference{
		ID:         "preview",
		Categories: categories,
		MaxItems:   maxItems,
		Frequency:  recipient.FrequencyDaily,
	}
	pref.Normalize(h.registry, h.maxItems)

	articles := h.engine.SelectForRecipient(c.Request.Context(), pref)

	c.JSON(http.StatusOK, gin.H{
		"message":  digest.Format(articles),
		"articles": len(articles),
	})
}

func (h *Handler) loadRecipient(c *gin.Context) (*recipient.Preference, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing recipient id parameter"})
		return nil, false
	}

	pref, err := h.recipientRepo.Get(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_recipient", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if pref == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
		return nil, false
	}

	return pref, true
}

func recipientJSON(pref *recipient.Preference) gin.H {
	data := gin.H{
		"id":              pref.ID,
		"name":            pref.Name,
		"phone":           pref.Phone,
		"active":          pref.Active,
		"categories":      pref.Categories,
		"excluded_topics": pref.ExcludedTopics,
		"max_items":       pref.MaxItems,
		"frequency":       string(pref.Frequency),
		"messages_sent":   pref.Stats.MessagesSent,
		"articles_sent":   pref.Stats.ArticlesSent,
		"created_at":      pref.CreatedAt.Format(time.RFC3339),
		"updated_at":      pref.UpdatedAt.Format(time.RFC3339),
	}
	if pref.Stats.LastSentAt != nil {
		data["last_sent_at"] = pref.Stats.LastSentAt.Format(time.RFC3339)
	}
	return data
}
