package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"pantry/internal/domain"
	"pantry/internal/service"
)

// UserHeader заголовок с идентификатором пользователя, его выставляет провайдер аутентификации перед сервисом
const UserHeader = "X-User-ID"

const userKey = "user_id"

type Server struct {
	engine *gin.Engine
	items  *service.InventoryService
	logger *zap.Logger
}

func NewServer(items *service.InventoryService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	s := &Server{engine: r, items: items, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler движок в обёртке otelhttp, у каждого запроса свой серверный span
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "pantry-http")
}

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/categories", s.listCategories)

		auth := v1.Group("", requireUser())
		group := auth.Group("/categories/:category/:subcategory/items")
		group.GET("", s.listItems)
		group.POST("", s.addItem)

		items := auth.Group("/items")
		items.GET(":id", s.getItem)
		items.PATCH(":id", s.updateItem)
		items.PUT(":id/quantity", s.updateQuantity)
		items.PUT(":id/status", s.updateStatus)
		items.DELETE(":id", s.deleteItem)

		v1.GET("/barcodes/:code", s.resolveBarcode)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_id", c.GetString(userKey)),
		)
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(UserHeader))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserHeader})
			return
		}
		c.Set(userKey, uid)
		c.Next()
	}
}

// @Summary Liveness check
// @Tags system
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List categories and their subcategories
// @Tags categories
// @Produce json
// @Success 200 {array} domain.Group
// @Router /api/v1/categories [get]
func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Taxonomy())
}

// @Summary List items of a subcategory
// @Tags items
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param category path string true "Category"
// @Param subcategory path string true "Subcategory"
// @Success 200 {array} domain.Item
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/categories/{category}/{subcategory}/items [get]
func (s *Server) listItems(c *gin.Context) {
	list, err := s.items.ListItems(c.Request.Context(), c.GetString(userKey),
		domain.Category(c.Param("category")), domain.Subcategory(c.Param("subcategory")))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type addItemReq struct {
	Name       string            `json:"name"`
	Quantity   json.Number       `json:"quantity" swaggertype:"string"`
	Status     domain.ItemStatus `json:"status"`
	ExpiryDate string            `json:"expiry_date"`
	Barcode    string            `json:"barcode"`
}

// @Summary Add item
// @Tags items
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param category path string true "Category"
// @Param subcategory path string true "Subcategory"
// @Param input body addItemReq true "Draft"
// @Success 201 {object} domain.Item
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/categories/{category}/{subcategory}/items [post]
func (s *Server) addItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	// the add form starts at 1
	qty := req.Quantity.String()
	if qty == "" {
		qty = "1"
	}
	draft := domain.Draft{
		Name:       req.Name,
		Quantity:   qty,
		Status:     req.Status,
		ExpiryDate: req.ExpiryDate,
		Barcode:    req.Barcode,
	}
	it, err := s.items.AddItem(c.Request.Context(), c.GetString(userKey),
		domain.Category(c.Param("category")), domain.Subcategory(c.Param("subcategory")), draft)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// @Summary Get item by id
// @Tags items
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Item ID"
// @Success 200 {object} domain.Item
// @Failure 404 {object} map[string]string
// @Router /api/v1/items/{id} [get]
func (s *Server) getItem(c *gin.Context) {
	it, err := s.items.GetItem(c.Request.Context(), c.GetString(userKey), c.Param("id"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// patchReq binds the immutable fields only so they can be rejected
type patchReq struct {
	Name        *string            `json:"name"`
	Quantity    *int64             `json:"quantity"`
	Status      *domain.ItemStatus `json:"status"`
	ExpiryDate  *string            `json:"expiry_date"`
	ID          *string            `json:"id"`
	OwnerID     *string            `json:"owner_id"`
	Category    *domain.Category   `json:"category"`
	Subcategory *domain.Subcategory `json:"subcategory"`
}

// @Summary Edit item
// @Description Empty expiry_date clears the date. id, owner_id, category and subcategory cannot be changed.
// @Tags items
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Item ID"
// @Param input body patchReq true "Patch"
// @Success 200 {object} domain.Item
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/items/{id} [patch]
func (s *Server) updateItem(c *gin.Context) {
	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	patch := domain.ItemPatch{
		Name:        req.Name,
		Quantity:    req.Quantity,
		Status:      req.Status,
		ID:          req.ID,
		OwnerID:     req.OwnerID,
		Category:    req.Category,
		Subcategory: req.Subcategory,
	}
	if req.ExpiryDate != nil {
		raw := strings.TrimSpace(*req.ExpiryDate)
		if raw == "" {
			patch.ClearExpiry = true
		} else {
			d, err := domain.ParseDate(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			patch.ExpiryDate = &d
		}
	}
	it, err := s.items.UpdateItem(c.Request.Context(), c.GetString(userKey), c.Param("id"), patch)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

type quantityReq struct {
	Quantity json.Number `json:"quantity" binding:"required" swaggertype:"string"`
}

// @Summary Set item quantity
// @Tags items
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Item ID"
// @Param input body quantityReq true "Quantity"
// @Success 200 {object} domain.Item
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/items/{id}/quantity [put]
func (s *Server) updateQuantity(c *gin.Context) {
	var req quantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	it, err := s.items.UpdateQuantityText(c.Request.Context(), c.GetString(userKey), c.Param("id"), req.Quantity.String())
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

type statusReq struct {
	Status domain.ItemStatus `json:"status" binding:"required"`
}

// @Summary Set item status
// @Tags items
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Item ID"
// @Param input body statusReq true "In Stock or Out of Stock"
// @Success 200 {object} domain.Item
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/items/{id}/status [put]
func (s *Server) updateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	it, err := s.items.ToggleStatus(c.Request.Context(), c.GetString(userKey), c.Param("id"), req.Status)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// @Summary Delete item
// @Tags items
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Item ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/items/{id} [delete]
func (s *Server) deleteItem(c *gin.Context) {
	if err := s.items.RemoveItem(c.Request.Context(), c.GetString(userKey), c.Param("id")); err != nil {
		s.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type barcodeResp struct {
	Found bool                 `json:"found"`
	Entry *domain.CatalogEntry `json:"entry,omitempty"`
	Draft domain.Draft         `json:"draft"`
}

// @Summary Resolve barcode into an add-item draft
// @Description Unknown barcodes are not an error: found is false and the draft only carries the barcode.
// @Tags barcodes
// @Produce json
// @Param code path string true "Barcode"
// @Success 200 {object} barcodeResp
// @Failure 503 {object} map[string]string
// @Router /api/v1/barcodes/{code} [get]
func (s *Server) resolveBarcode(c *gin.Context) {
	code := c.Param("code")
	res, err := s.items.ResolveBarcode(c.Request.Context(), code)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	out := barcodeResp{Found: res.Found, Draft: service.DraftFromResolution(res, code)}
	if res.Found {
		e := res.Entry
		out.Entry = &e
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) respondErr(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = service.ErrPersistence.Error()
	case http.StatusInternalServerError:
		s.logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
