package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionRefund TransactionType = "refund"
	TransactionVoid   TransactionType = "void"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentOther    PaymentMethod = "other"
)

// Actor identifies who performs an operation; it is carried on the context.
type Actor struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64"`
	Username     string    `json:"username" gorm:"size:64;index" validate:"required,max=64"`
	Email        string    `json:"email" gorm:"size:255" validate:"omitempty,email"`
	PasswordHash string    `json:"passwordHash" gorm:"size:255" validate:"required"`
	Role         Role      `json:"role" gorm:"size:16" validate:"required,oneof=admin manager cashier"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

type Product struct {
	ID                   string              `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64"`
	Name                 string              `json:"name" gorm:"size:200" validate:"required,max=200"`
	SKU                  string              `json:"sku" gorm:"size:64;index" validate:"required,max=64"`
	Barcode              string              `json:"barcode" gorm:"size:64;index" validate:"max=64"`
	Description          string              `json:"description" gorm:"type:text"`
	Price                decimal.Decimal     `json:"price" gorm:"type:decimal(12,2)"`
	Cost                 decimal.Decimal     `json:"cost" gorm:"type:decimal(12,2)"`
	Quantity             int                 `json:"quantity" gorm:"index" validate:"min=0"`
	MinStockLevel        int                 `json:"minStockLevel" validate:"min=0"`
	CategoryID           string              `json:"categoryId" gorm:"size:64;index" validate:"max=64"`
	WholesalePrice       decimal.NullDecimal `json:"wholesalePrice" gorm:"type:decimal(12,2)"`
	WholesaleMinQuantity *int                `json:"wholesaleMinQuantity" validate:"omitempty,min=1"`
	Active               bool                `json:"active"`
	CreatedAt            time.Time           `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt            time.Time           `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// HasWholesaleTier reports whether both wholesale fields are set.
func (p Product) HasWholesaleTier() bool {
	return p.WholesalePrice.Valid && p.WholesaleMinQuantity != nil
}

type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64"`
	Name        string    `json:"name" gorm:"size:120" validate:"required,max=120"`
	ParentID    string    `json:"parentId,omitempty" gorm:"size:64;index" validate:"max=64"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TransactionItem is a price snapshot taken when the transaction was built.
// It is never recomputed from the current product.
type TransactionItem struct {
	ProductID   string          `json:"productId" validate:"required"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type Transaction struct {
	ID                    string            `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64"`
	TransactionNumber     string            `json:"transactionNumber" gorm:"size:64;index" validate:"required,max=64"`
	Type                  TransactionType   `json:"type" gorm:"size:16;index" validate:"required,oneof=sale refund void"`
	Status                TransactionStatus `json:"status" gorm:"size:16" validate:"required,oneof=pending completed cancelled"`
	Items                 []TransactionItem `json:"items" gorm:"serializer:json;type:text" validate:"dive"`
	Subtotal              decimal.Decimal   `json:"subtotal" gorm:"type:decimal(12,2)"`
	DiscountPercent       decimal.Decimal   `json:"discountPercent" gorm:"type:decimal(5,2)"`
	Discount              decimal.Decimal   `json:"discount" gorm:"type:decimal(12,2)"`
	Tax                   decimal.Decimal   `json:"tax" gorm:"type:decimal(12,2)"`
	Total                 decimal.Decimal   `json:"total" gorm:"type:decimal(12,2)"`
	PaymentMethod         PaymentMethod     `json:"paymentMethod" gorm:"size:16" validate:"omitempty,oneof=cash card transfer other"`
	CashierID             string            `json:"cashierId" gorm:"size:64;index" validate:"max=64"`
	RefundedTransactionID string            `json:"refundedTransactionId,omitempty" gorm:"size:64;index" validate:"max=64"`
	Notes                 string            `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt             time.Time         `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt             time.Time         `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

type ActivityLog struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64"`
	UserID     string    `json:"userId" gorm:"size:64;index" validate:"max=64"`
	Action     string    `json:"action" gorm:"size:64" validate:"required,max=64"`
	EntityType string    `json:"entityType" gorm:"size:32;index:idx_activity_entity" validate:"max=32"`
	EntityID   string    `json:"entityId" gorm:"size:64;index:idx_activity_entity" validate:"max=64"`
	Details    string    `json:"details" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime:false;index"`
}

type PrinterSettings struct {
	Enabled     bool   `json:"enabled"`
	PrinterName string `json:"printerName" validate:"max=120"`
	PaperWidth  int    `json:"paperWidth" validate:"oneof=58 80"`
	AutoPrint   bool   `json:"autoPrint"`
	Copies      int    `json:"copies" validate:"min=1,max=5"`
	ShowLogo    bool   `json:"showLogo"`
}

const SettingsID = "default"

type Settings struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32" validate:"required,eq=default"`
	StoreName         string          `json:"storeName" gorm:"size:120" validate:"required,max=120"`
	StoreAddress      string          `json:"storeAddress" gorm:"size:255"`
	StorePhone        string          `json:"storePhone" gorm:"size:32"`
	Currency          string          `json:"currency" gorm:"size:3" validate:"required,len=3"`
	LowStockThreshold int             `json:"lowStockThreshold" validate:"min=0"`
	ReceiptFooter     string          `json:"receiptFooter" gorm:"type:text"`
	Printer           PrinterSettings `json:"printerSettings" gorm:"serializer:json;type:text"`
	CreatedAt         time.Time       `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time       `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

func DefaultPrinterSettings() PrinterSettings {
	return PrinterSettings{
		PaperWidth: 80,
		Copies:     1,
	}
}

func DefaultSettings(now time.Time) Settings {
	return Settings{
		ID:                SettingsID,
		StoreName:         "Kasir Lokal",
		Currency:          "IDR",
		LowStockThreshold: 10,
		ReceiptFooter:     "Terima kasih atas kunjungan Anda",
		Printer:           DefaultPrinterSettings(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

type SalesStats struct {
	TotalSales         decimal.Decimal `json:"totalSales"`
	TotalTransactions  int             `json:"totalTransactions"`
	AverageTransaction decimal.Decimal `json:"averageTransaction"`
	TotalRefunds       decimal.Decimal `json:"totalRefunds"`
}
