package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"posterminal/ledger"
	"posterminal/middleware"
	"posterminal/models"
)

type OrderController struct {
	ledger  *ledger.Ledger
	metrics *middleware.Metrics
	log     zerolog.Logger
}

func NewOrderController(ledger *ledger.Ledger, metrics *middleware.Metrics, log zerolog.Logger) *OrderController {
	return &OrderController{ledger: ledger, metrics: metrics, log: log}
}

// cartLine is one cart entry as sent by the terminal. A line with itemId is
// taken from the catalog; otherwise name and price make it an ad hoc line.
type cartLine struct {
	ItemID   *int64           `json:"itemId"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Quantity int              `json:"quantity"`
	Note     string           `json:"note"`
}

type submitOrderRequest struct {
	Items []cartLine `json:"items"`
}

func (l cartLine) entry(n int) (models.CartEntry, error) {
	entry := models.CartEntry{Quantity: l.Quantity, Note: l.Note}
	switch {
	case l.ItemID != nil:
		entry.Source = models.CatalogLine{ItemID: *l.ItemID}
	case l.Price != nil:
		entry.Source = models.AdHocLine{Name: l.Name, Price: *l.Price}
	default:
		return entry, fmt.Errorf("%w: line %d needs itemId or price", models.ErrInvalidArgument, n)
	}
	return entry, nil
}

func (h *OrderController) ListPending(c *gin.Context) {
	orders, err := h.ledger.Pending(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderController) SubmitOrder(c *gin.Context) {
	var input submitOrderRequest
	if err := bindJSON(c, &input); err != nil {
		respondError(c, h.log, err)
		return
	}
	cart := make([]models.CartEntry, 0, len(input.Items))
	for i, line := range input.Items {
		entry, err := line.entry(i + 1)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		cart = append(cart, entry)
	}

	order, err := h.ledger.Submit(c.Request.Context(), cart, middleware.Identity(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

func (h *OrderController) GetOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	order, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderController) AdjustTotal(c *gin.Context) {
	var input struct {
		Total *decimal.Decimal `json:"total"`
	}
	id, err := paramID(c, "id")
	if err == nil {
		err = bindJSON(c, &input)
	}
	if err == nil && input.Total == nil {
		err = fmt.Errorf("%w: total is required", models.ErrInvalidArgument)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	order, err := h.ledger.AdjustTotal(c.Request.Context(), id, *input.Total)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *OrderController) ApplyDiscount(c *gin.Context) {
	var input struct {
		Percentage *decimal.Decimal `json:"percentage"`
	}
	id, err := paramID(c, "id")
	if err == nil {
		err = bindJSON(c, &input)
	}
	if err == nil && input.Percentage == nil {
		err = fmt.Errorf("%w: percentage is required", models.ErrInvalidArgument)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	order, err := h.ledger.ApplyDiscount(c.Request.Context(), id, *input.Percentage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *OrderController) CompleteOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	order, err := h.ledger.Complete(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersCompleted.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *OrderController) DeleteOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CompletedOrders serves GET /api/completed-orders?limit=n.
func (h *OrderController) CompletedOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, h.log, fmt.Errorf("%w: invalid limit %q", models.ErrInvalidArgument, raw))
			return
		}
		limit = n
	}
	orders, err := h.ledger.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
