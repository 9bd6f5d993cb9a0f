package api

import (
	"net/http"

	"checkout-builder/internal/models"

	"github.com/gin-gonic/gin"
)

// pageRequest is the editable part of a checkout page
type pageRequest struct {
	Title         string                 `json:"title" binding:"required,max=200"`
	Slug          string                 `json:"slug" binding:"max=120"`
	Description   string                 `json:"description"`
	LogoURL       string                 `json:"logo_url" binding:"omitempty,url"`
	Theme         models.CheckoutTheme   `json:"theme"`
	CustomFields  []models.CustomField   `json:"custom_fields" binding:"dive"`
	Products      []models.Product       `json:"products"`
	Layout        []models.LayoutElement `json:"layout"`
	IsActive      *bool                  `json:"is_active"`
	Pixels        *models.TrackingPixels `json:"pixels"`
	UtmifyKey     string                 `json:"utmify_key"`
	DeliveryEmail string                 `json:"delivery_email" binding:"omitempty,email"`
}

func (r *pageRequest) toPage() *models.CheckoutPage {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.CheckoutPage{
		Title:         r.Title,
		Slug:          r.Slug,
		Description:   r.Description,
		LogoURL:       r.LogoURL,
		Theme:         r.Theme,
		CustomFields:  r.CustomFields,
		Products:      r.Products,
		Layout:        r.Layout,
		IsActive:      active,
		Pixels:        r.Pixels,
		UtmifyKey:     r.UtmifyKey,
		DeliveryEmail: r.DeliveryEmail,
	}
}

func bindPage(c *gin.Context) (*models.CheckoutPage, bool) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return nil, false
	}
	return req.toPage(), true
}

// listPages handles GET /pages
func (h *Handler) listPages(c *gin.Context) {
	pages, err := h.pageService.ListPages(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if pages == nil {
		pages = []*models.CheckoutPage{}
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// createPage handles POST /pages
func (h *Handler) createPage(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	result, err := h.pageService.CreatePage(c.Request.Context(), currentUser(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// getPage handles GET /pages/:id
func (h *Handler) getPage(c *gin.Context) {
	page, err := h.pageService.GetPage(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// updatePage handles PUT /pages/:id
func (h *Handler) updatePage(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	result, err := h.pageService.UpdatePage(c.Request.Context(), currentUser(c), c.Param("id"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// deletePage handles DELETE /pages/:id
func (h *Handler) deletePage(c *gin.Context) {
	if err := h.pageService.DeletePage(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// removeField handles DELETE /pages/:id/fields/:fieldId
func (h *Handler) removeField(c *gin.Context) {
	page, err := h.pageService.RemoveField(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("fieldId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// removeLayoutElement handles DELETE /pages/:id/layout/:elementId
func (h *Handler) removeLayoutElement(c *gin.Context) {
	page, err := h.pageService.RemoveLayoutElement(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("elementId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// checkSlug handles GET /slugs/:slug
func (h *Handler) checkSlug(c *gin.Context) {
	result, err := h.pageService.CheckSlug(c.Request.Context(), currentUser(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getStorefront handles GET /checkout/:slug
func (h *Handler) getStorefront(c *gin.Context) {
	rendered, err := h.pageService.RenderPublicPage(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rendered)
}
