package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/pricing"
)

func (a *API) registerSales(r *gin.RouterGroup) {
	editors := requireRole(domain.RoleAdmin, domain.RoleManager)

	r.GET("/transactions", a.handleListTransactions)
	r.GET("/transactions/stats", a.handleSalesStats)
	r.GET("/transactions/:id", a.handleGetTransaction)
	r.POST("/transactions", a.handleCreateTransaction)
	r.PATCH("/transactions/:id", editors, a.handleUpdateTransaction)
	r.DELETE("/transactions/:id", editors, a.handleDeleteTransaction)

	r.GET("/cart", a.handleGetCart)
	r.DELETE("/cart", a.handleClearCart)
	r.POST("/cart/items", a.handleAddCartItem)
	r.PATCH("/cart/items/:productId", a.handleSetCartQuantity)
	r.DELETE("/cart/items/:productId", a.handleRemoveCartItem)
	r.PUT("/cart/discount", a.handleSetCartDiscount)
	r.POST("/cart/checkout", a.handleCheckout)
}

func (a *API) handleListTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		transactions []domain.Transaction
		err          error
	)
	switch {
	case c.Query("today") == "true":
		transactions, err = a.service.Transactions.GetToday(ctx)
	case c.Query("from") != "" || c.Query("to") != "":
		from, to, perr := rangeQuery(c)
		if perr != nil {
			a.badRequest(c, perr)
			return
		}
		transactions, err = a.service.Transactions.GetByDateRange(ctx, from, to)
	case c.Query("cashier") != "":
		transactions, err = a.service.Transactions.GetByCashier(ctx, c.Query("cashier"))
	case c.Query("type") != "":
		transactions, err = a.service.Transactions.GetByType(ctx, domain.TransactionType(c.Query("type")))
	default:
		transactions, err = a.service.Transactions.GetAll(ctx)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": transactions})
}

func rangeQuery(c *gin.Context) (from, to time.Time, err error) {
	if c.Query("from") == "" || c.Query("to") == "" {
		return from, to, errors.New("both from and to are required")
	}
	if from, err = parseTime(c.Query("from"), false); err != nil {
		return from, to, err
	}
	to, err = parseTime(c.Query("to"), true)
	return from, to, err
}

func (a *API) handleSalesStats(c *gin.Context) {
	from, to, err := rangeQuery(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	stats, err := a.service.Transactions.GetSalesStats(c.Request.Context(), from, to)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *API) handleGetTransaction(c *gin.Context) {
	transaction, err := a.service.Transactions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (a *API) handleCreateTransaction(c *gin.Context) {
	var req domain.TransactionCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	actor := actorFrom(c)
	// Cashiers may only record sales.
	if req.Type != domain.TransactionSale && actor.Role == domain.RoleCashier {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden role"})
		return
	}
	transaction, err := a.service.Transactions.Create(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}

func (a *API) handleUpdateTransaction(c *gin.Context) {
	var req domain.TransactionUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	transaction, err := a.service.Transactions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (a *API) handleDeleteTransaction(c *gin.Context) {
	if err := a.service.Transactions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cartView struct {
	Lines  []pricing.Line `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

func viewOf(cart *pricing.Cart) cartView {
	lines := cart.Lines()
	if lines == nil {
		lines = []pricing.Line{}
	}
	return cartView{Lines: lines, Totals: cart.Totals()}
}

// editCart applies fn to the open cart and answers with its new contents.
func (a *API) editCart(c *gin.Context, fn func(cart *pricing.Cart) error) {
	var view cartView
	err := a.state.WithCart(func(cart *pricing.Cart) error {
		if err := fn(cart); err != nil {
			return err
		}
		view = viewOf(cart)
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *API) handleGetCart(c *gin.Context) {
	a.editCart(c, func(*pricing.Cart) error { return nil })
}

func (a *API) handleClearCart(c *gin.Context) {
	a.editCart(c, func(cart *pricing.Cart) error {
		cart.Clear()
		return nil
	})
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (a *API) handleAddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	product, err := a.service.Products.GetByID(c.Request.Context(), req.ProductID)
	if err != nil {
		a.fail(c, err)
		return
	}
	if !product.Active {
		a.badRequest(c, errors.New("product is inactive"))
		return
	}
	a.editCart(c, func(cart *pricing.Cart) error {
		return cart.Add(product, req.Quantity)
	})
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (a *API) handleSetCartQuantity(c *gin.Context) {
	var req cartQuantityRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	a.editCart(c, func(cart *pricing.Cart) error {
		return cart.SetQuantity(c.Param("productId"), req.Quantity)
	})
}

func (a *API) handleRemoveCartItem(c *gin.Context) {
	a.editCart(c, func(cart *pricing.Cart) error {
		cart.Remove(c.Param("productId"))
		return nil
	})
}

type cartDiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

func (a *API) handleSetCartDiscount(c *gin.Context) {
	var req cartDiscountRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	a.editCart(c, func(cart *pricing.Cart) error {
		cart.SetDiscount(req.Percent)
		return nil
	})
}

type checkoutRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Notes         string               `json:"notes"`
}

func (a *API) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	cashierID := actorFrom(c).UserID
	var transaction domain.Transaction
	err := a.state.WithCart(func(cart *pricing.Cart) error {
		var err error
		transaction, err = a.service.Transactions.Checkout(ctx, cart, req.PaymentMethod, cashierID, req.Notes)
		return err
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, transaction)
}
