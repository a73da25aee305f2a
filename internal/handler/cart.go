package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/middleware"
)

type CartHandler struct {
	svc CartService
}

func NewCartHandler(svc CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) AddProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	cart, err := h.svc.AddProduct(c.Request.Context(), middleware.GetUserID(c), productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

// SetQuantity accepts a bare integer body or {"quantity": n}; 0 removes the line.
func (h *CartHandler) SetQuantity(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	var quantity dto.CartQuantity
	if err := c.ShouldBindJSON(&quantity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.SetQuantity(c.Request.Context(), middleware.GetUserID(c), productID, int(quantity))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) RemoveProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveProduct(c.Request.Context(), middleware.GetUserID(c), productID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.svc.Clear(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCartResponse(cart))
}
