package api

import (
	"net/http"

	"checkout-builder/internal/service"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// submitOrder handles POST /checkout/:slug/orders
func (h *Handler) submitOrder(c *gin.Context) {
	var req service.SubmitOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	resp, err := h.orderService.SubmitOrder(c.Request.Context(), c.Param("slug"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// listOrders handles GET /pages/:id/orders
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// updateOrderStatus handles PATCH /orders/:id/status
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), currentUser(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// dashboard handles GET /dashboard
func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.orderService.GetDashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
