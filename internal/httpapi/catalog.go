package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kasirlokal/internal/domain"
)

func (a *API) registerCatalog(r *gin.RouterGroup) {
	editors := requireRole(domain.RoleAdmin, domain.RoleManager)

	r.GET("/products", a.handleListProducts)
	r.GET("/products/low-stock", a.handleLowStock)
	r.GET("/products/out-of-stock", a.handleOutOfStock)
	r.GET("/products/sku/:sku", a.handleProductBySKU)
	r.GET("/products/:id", a.handleGetProduct)
	r.POST("/products", editors, a.handleCreateProduct)
	r.PATCH("/products/:id", editors, a.handleUpdateProduct)
	r.DELETE("/products/:id", editors, a.handleDeleteProduct)
	r.POST("/products/:id/stock", editors, a.handleAdjustStock)

	r.GET("/categories", a.handleListCategories)
	r.GET("/categories/:id", a.handleGetCategory)
	r.POST("/categories", editors, a.handleCreateCategory)
	r.PATCH("/categories/:id", editors, a.handleUpdateCategory)
	r.DELETE("/categories/:id", editors, a.handleDeleteCategory)
}

// handleListProducts serves the whole catalog, or one filtered view when a
// search, category or active filter is given.
func (a *API) handleListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		products []domain.Product
		err      error
	)
	switch {
	case strings.TrimSpace(c.Query("search")) != "":
		products, err = a.service.Products.Search(ctx, c.Query("search"))
	case c.Query("category") != "":
		products, err = a.service.Products.GetByCategory(ctx, c.Query("category"))
	case c.Query("active") == "true":
		products, err = a.service.Products.GetActive(ctx)
	default:
		products, err = a.service.Products.GetAll(ctx)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}

func (a *API) handleLowStock(c *gin.Context) {
	var threshold *int
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.badRequest(c, errors.New("threshold must be a non-negative integer"))
			return
		}
		threshold = &n
	}
	products, err := a.service.Products.GetLowStock(c.Request.Context(), threshold)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}

func (a *API) handleOutOfStock(c *gin.Context) {
	products, err := a.service.Products.GetOutOfStock(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}

func (a *API) handleProductBySKU(c *gin.Context) {
	product, err := a.service.Products.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) handleGetProduct(c *gin.Context) {
	product, err := a.service.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	product, err := a.service.Products.Create(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	product, err := a.service.Products.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) handleDeleteProduct(c *gin.Context) {
	if err := a.service.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type stockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (a *API) handleAdjustStock(c *gin.Context) {
	var req stockAdjustRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	if req.Delta == 0 {
		a.badRequest(c, errors.New("delta must not be zero"))
		return
	}
	product, err := a.service.Products.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta, req.Reason)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *API) handleListCategories(c *gin.Context) {
	categories, err := a.service.Categories.GetAll(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": categories})
}

func (a *API) handleGetCategory(c *gin.Context) {
	category, err := a.service.Categories.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (a *API) handleCreateCategory(c *gin.Context) {
	var req domain.CategoryCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	category, err := a.service.Categories.Create(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (a *API) handleUpdateCategory(c *gin.Context) {
	var req domain.CategoryUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	category, err := a.service.Categories.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (a *API) handleDeleteCategory(c *gin.Context) {
	if err := a.service.Categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
