package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/service"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cartService  *service.CartService
	orderService *service.OrderService
	store        *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(cartService *service.CartService, orderService *service.OrderService, store *store.Store) *Handler {
	return &Handler{
		cartService:  cartService,
		orderService: orderService,
		store:        store,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartLine)
		v1.PATCH("/cart/items/:id", h.updateCartLine)
		v1.DELETE("/cart/items/:id", h.removeCartLine)
		v1.POST("/cart/merge", h.mergeCart)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/orders/:id/lines/:lineID/cancel", h.cancelOrderLine)
		v1.PATCH("/orders/:id/lines/:lineID/status", h.updateLineStatus)

		v1.GET("/campaigns/:id/sales", h.campaignSales)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// ownerFromHeaders resolves the cart owner the identity provider already
// authenticated: X-User-ID for logged-in customers, X-Session-ID for
// anonymous ones.
func ownerFromHeaders(c *gin.Context) (models.CartOwner, bool) {
	if userHeader := c.GetHeader("X-User-ID"); userHeader != "" {
		userID, err := strconv.ParseInt(userHeader, 10, 64)
		if err != nil {
			return models.CartOwner{}, false
		}
		return models.UserOwner(userID), true
	}
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return models.SessionOwner(session), true
	}
	return models.CartOwner{}, false
}

func userIDFromHeaders(c *gin.Context) (int64, bool) {
	userHeader := c.GetHeader("X-User-ID")
	if userHeader == "" {
		return 0, false
	}
	userID, err := strconv.ParseInt(userHeader, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// respondError maps error kinds to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrValidationFailed):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.store.GetProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	ctx := c.Request.Context()
	product, err := h.store.GetProductByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	variants, err := h.store.GetProductVariants(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	colors, err := h.store.GetProductColors(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":  product,
		"variants": variants,
		"colors":   colors,
	})
}

// AddCartLineRequest is the payload for adding a cart line
type AddCartLineRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID int64  `json:"variant_id" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addCartLine(c *gin.Context) {
	owner, ok := ownerFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID or X-Session-ID header"})
		return
	}

	var req AddCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	cart, err := h.cartService.AddLine(c.Request.Context(), owner, req.ProductID, req.VariantID, req.Color, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cart)
}

func (h *Handler) getCart(c *gin.Context) {
	owner, ok := ownerFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID or X-Session-ID header"})
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// UpdateCartLineRequest is the payload for changing a line's quantity
type UpdateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) updateCartLine(c *gin.Context) {
	owner, ok := ownerFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID or X-Session-ID header"})
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line ID"})
		return
	}

	var req UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.cartService.UpdateQuantity(c.Request.Context(), owner, lineID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) removeCartLine(c *gin.Context) {
	owner, ok := ownerFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID or X-Session-ID header"})
		return
	}
	lineID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line ID"})
		return
	}

	if err := h.cartService.RemoveLine(c.Request.Context(), owner, lineID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MergeCartRequest carries the anonymous session whose cart is folded in
type MergeCartRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) mergeCart(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "merge requires an authenticated X-User-ID header"})
		return
	}

	var req MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	cart, err := h.cartService.MergeAnonymousCart(c.Request.Context(), req.SessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// CreateOrderRequest is the payload for consolidating the cart
type CreateOrderRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) createOrder(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "orders require an authenticated X-User-ID header"})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "orders require an authenticated X-User-ID header"})
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "orders require an authenticated X-User-ID header"})
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "orders require an authenticated X-User-ID header"})
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrderLine(c *gin.Context) {
	userID, ok := userIDFromHeaders(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "orders require an authenticated X-User-ID header"})
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	lineID, ok := pathID(c, "lineID")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line ID"})
		return
	}

	line, err := h.orderService.CancelOrderItem(c.Request.Context(), userID, orderID, lineID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, line)
}

func (h *Handler) updateLineStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}
	lineID, ok := pathID(c, "lineID")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line ID"})
		return
	}

	var update service.LineStatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	line, err := h.orderService.UpdateLineStatus(c.Request.Context(), orderID, lineID, update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, line)
}

func (h *Handler) campaignSales(c *gin.Context) {
	campaignID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign ID"})
		return
	}

	report, err := h.orderService.GetSalesByCampaign(c.Request.Context(), campaignID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
