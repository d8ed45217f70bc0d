package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"posterminal/catalog"
	"posterminal/models"
)

type ItemController struct {
	catalog *catalog.Manager
	log     zerolog.Logger
}

func NewItemController(catalog *catalog.Manager, log zerolog.Logger) *ItemController {
	return &ItemController{catalog: catalog, log: log}
}

// ListItems serves GET /api/items?state=active|deleted|all; active by default.
func (h *ItemController) ListItems(c *gin.Context) {
	filter := models.ItemFilter(strings.ToLower(c.DefaultQuery("state", string(models.FilterActive))))
	h.list(c, filter)
}

func (h *ItemController) ListDeletedItems(c *gin.Context) {
	h.list(c, models.FilterDeleted)
}

func (h *ItemController) list(c *gin.Context, filter models.ItemFilter) {
	items, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}

func (h *ItemController) GetItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": item})
}

func (h *ItemController) CreateItem(c *gin.Context) {
	var input models.NewItem
	if err := bindJSON(c, &input); err != nil {
		respondError(c, h.log, err)
		return
	}
	item, err := h.catalog.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": item})
}

func (h *ItemController) UpdateItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var patch models.ItemPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.log, err)
		return
	}
	item, err := h.catalog.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": item})
}

// DeleteItem soft deletes; the item shows up under /api/deleted-items.
func (h *ItemController) DeleteItem(c *gin.Context) {
	h.transition(c, h.catalog.SoftDelete)
}

func (h *ItemController) RestoreItem(c *gin.Context) {
	h.transition(c, h.catalog.Restore)
}

// PurgeItem is the irreversible second step after DeleteItem. The client
// must send confirm=true.
func (h *ItemController) PurgeItem(c *gin.Context) {
	if c.Query("confirm") != "true" {
		respondError(c, h.log, fmt.Errorf("%w: permanent deletion requires confirm=true", models.ErrInvalidArgument))
		return
	}
	h.transition(c, h.catalog.Purge)
}

func (h *ItemController) transition(c *gin.Context, op func(context.Context, int64) error) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
