package domain

import "github.com/shopspring/decimal"

// Update requests list only the fields that may change after creation.
// A nil pointer leaves the stored value untouched.

type UserCreateRequest struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Active   *bool  `json:"active,omitempty"`
}

type UserUpdateRequest struct {
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Password *string `json:"password,omitempty"`
}

type ProductCreateRequest struct {
	ID                   string              `json:"id,omitempty"`
	Name                 string              `json:"name"`
	SKU                  string              `json:"sku"`
	Barcode              string              `json:"barcode"`
	Description          string              `json:"description"`
	Price                decimal.Decimal     `json:"price"`
	Cost                 decimal.Decimal     `json:"cost"`
	Quantity             int                 `json:"quantity"`
	MinStockLevel        int                 `json:"minStockLevel"`
	CategoryID           string              `json:"categoryId"`
	WholesalePrice       decimal.NullDecimal `json:"wholesalePrice"`
	WholesaleMinQuantity *int                `json:"wholesaleMinQuantity,omitempty"`
	Active               *bool               `json:"active,omitempty"`
}

// ProductUpdateRequest has no quantity: stock only moves through the stock coordinator.
type ProductUpdateRequest struct {
	Name                 *string          `json:"name,omitempty"`
	SKU                  *string          `json:"sku,omitempty"`
	Barcode              *string          `json:"barcode,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	Cost                 *decimal.Decimal `json:"cost,omitempty"`
	MinStockLevel        *int             `json:"minStockLevel,omitempty"`
	CategoryID           *string          `json:"categoryId,omitempty"`
	WholesalePrice       *decimal.Decimal `json:"wholesalePrice,omitempty"`
	WholesaleMinQuantity *int             `json:"wholesaleMinQuantity,omitempty"`
	ClearWholesale       bool             `json:"clearWholesale,omitempty"`
	Active               *bool            `json:"active,omitempty"`
}

type CategoryCreateRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	ParentID    string `json:"parentId,omitempty"`
	Description string `json:"description"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TransactionItemRequest prices the line from the current product when
// UnitPrice is nil. Only refunds and voids may set UnitPrice.
type TransactionItemRequest struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type TransactionCreateRequest struct {
	ID                    string                   `json:"id,omitempty"`
	Type                  TransactionType          `json:"type"`
	Status                TransactionStatus        `json:"status,omitempty"`
	Items                 []TransactionItemRequest `json:"items"`
	DiscountPercent       decimal.Decimal          `json:"discountPercent"`
	PaymentMethod         PaymentMethod            `json:"paymentMethod"`
	CashierID             string                   `json:"cashierId"`
	RefundedTransactionID string                   `json:"refundedTransactionId,omitempty"`
	Notes                 string                   `json:"notes,omitempty"`
}

type TransactionUpdateRequest struct {
	Status *TransactionStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

type SettingsUpdateRequest struct {
	StoreName         *string          `json:"storeName,omitempty"`
	StoreAddress      *string          `json:"storeAddress,omitempty"`
	StorePhone        *string          `json:"storePhone,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
	ReceiptFooter     *string          `json:"receiptFooter,omitempty"`
	Printer           *PrinterSettings `json:"printerSettings,omitempty"`
}

type ActivityLogCreateRequest struct {
	UserID     string `json:"userId"`
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Details    string `json:"details"`
}
