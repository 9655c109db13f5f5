package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
	"github.com/Vinay1094/kirana-store-automation/internal/infrastructure/catalogio"
	"github.com/Vinay1094/kirana-store-automation/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	inventory domain.InventoryRepository
	orders    domain.OrderRepository
	service   *usecase.OrderService
	storeName string
}

// NewHandler creates a new HTTP handler
func NewHandler(inventory domain.InventoryRepository, orders domain.OrderRepository, service *usecase.OrderService, storeName string) *Handler {
	return &Handler{
		inventory: inventory,
		orders:    orders,
		service:   service,
		storeName: storeName,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "kirana-store-automation",
		"version": "1.0.0",
	})
}

type whatsappRequest struct {
	Message       string `json:"message" binding:"required"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// WhatsAppWebhook processes an incoming WhatsApp order message: it resolves
// the text, persists the order, decrements stock for the billed lines and
// returns the confirmation reply.
func (h *Handler) WhatsAppWebhook(c *gin.Context) {
	var req whatsappRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx := c.Request.Context()
	snap, err := h.inventory.Snapshot(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.service.ResolveOrder(ctx, req.Message, snap)
	if err != nil {
		h.writeError(c, err)
		return
	}

	order := &domain.StoredOrder{
		ID:            uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Text:          req.Message,
		Result:        *result,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.orders.SaveOrder(ctx, order); err != nil {
		h.writeError(c, err)
		return
	}

	// Decrement stock for everything billed. A failed decrement means a
	// concurrent order got there first; the line stays in the saved order
	// but the reply already reflects the snapshot we resolved against.
	for _, line := range result.Lines {
		if line.Item == nil || line.FulfillableQty <= 0 {
			continue
		}
		switch line.Status {
		case domain.StatusMatched, domain.StatusPartiallyAvailable:
			if _, err := h.inventory.AdjustStock(ctx, line.Item.ID, -line.FulfillableQty, "order"); err != nil {
				log.Warn().
					Str("rid", RequestID(c)).
					Str("order", order.ID).
					Int64("item", line.Item.ID).
					Err(err).
					Msg("stock decrement failed")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"order_id":   order.ID,
		"reply_text": composeReply(req.CustomerName, h.storeName, result),
		"result":     result,
	})
}

type resolveRequest struct {
	Text string `json:"text" binding:"required"`
}

// ResolveOrder resolves order text against the current catalog without
// persisting anything. Used by the dashboard for previews.
func (h *Handler) ResolveOrder(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	ctx := c.Request.Context()
	snap, err := h.inventory.Snapshot(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.service.ResolveOrder(ctx, req.Text, snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type ledgerRequest struct {
	Lines []string `json:"lines" binding:"required"`
}

// ResolveLedger resolves OCR-extracted ledger lines through the same
// pipeline as chat text.
func (h *Handler) ResolveLedger(c *gin.Context) {
	var req ledgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lines are required"})
		return
	}

	ctx := c.Request.Context()
	snap, err := h.inventory.Snapshot(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.service.ResolveLedger(ctx, req.Lines, snap)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrder returns a previously stored order
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.OrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddItem adds one item to the catalog
func (h *Handler) AddItem(c *gin.Context) {
	var item domain.CatalogItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item payload"})
		return
	}

	id, err := h.inventory.AddItem(c.Request.Context(), item)
	if err != nil {
		h.writeError(c, err)
		return
	}

	created, err := h.inventory.ItemByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListItems lists catalog items, optionally filtered
func (h *Handler) ListItems(c *gin.Context) {
	inStockOnly := c.Query("in_stock") == "true"
	items, err := h.inventory.ListItems(c.Request.Context(), c.Query("category"), inStockOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// SearchItems searches the catalog by name or alias
func (h *Handler) SearchItems(c *gin.Context) {
	items, err := h.inventory.SearchItems(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// GetItem returns one catalog item
func (h *Handler) GetItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, err := h.inventory.ItemByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type stockRequest struct {
	Delta  float64 `json:"delta" binding:"required"`
	Reason string  `json:"reason"`
}

// AdjustStock applies a stock delta to one item
func (h *Handler) AdjustStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delta is required"})
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	item, err := h.inventory.AdjustStock(c.Request.Context(), id, req.Delta, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// StockHistory returns the recent stock changes of one item
func (h *Handler) StockHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := h.inventory.StockHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

// DeleteItem removes one item from the catalog
func (h *Handler) DeleteItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.inventory.DeleteItem(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportItems bulk-loads catalog items from an uploaded .csv or .xlsx file
func (h *Handler) ImportItems(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	items, err := catalogio.ReadItems(f, fileHeader.Filename)
	if err != nil {
		h.writeError(c, err)
		return
	}

	imported := 0
	var skipped []string
	for _, item := range items {
		if _, err := h.inventory.AddItem(c.Request.Context(), item); err != nil {
			if errors.Is(err, domain.ErrItemExists) {
				skipped = append(skipped, item.Name)
				continue
			}
			h.writeError(c, err)
			return
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrItemExists), errors.Is(err, domain.ErrAliasCollision):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrQuantityOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientStock):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoCatalog), errors.Is(err, domain.ErrInvalidCatalog):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Str("rid", RequestID(c)).Err(err).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
