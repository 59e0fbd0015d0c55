package migration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

// writeRecord coerces one legacy record and writes it. Existing ids and
// records that fail validation return errSkip.
func (m *Migrator) writeRecord(tx store.Tx, kind store.Kind, index int, rec record) error {
	id := rec.str("id", "_id")
	if id == "" {
		id = fmt.Sprintf("legacy-%s-%d", kind, index+1)
	}

	switch kind {
	case store.KindCategories:
		return m.writeCategory(tx, id, rec)
	case store.KindUsers:
		return m.writeUser(tx, id, rec)
	case store.KindProducts:
		return m.writeProduct(tx, id, rec)
	case store.KindTransactions:
		return m.writeTransaction(tx, id, rec)
	case store.KindActivityLogs:
		return m.writeActivityLog(tx, id, rec)
	case store.KindSettings:
		return m.writeSettings(tx, rec)
	}
	return m.skip(kind, id, "unknown kind")
}

func (m *Migrator) writeCategory(tx store.Tx, id string, rec record) error {
	if _, exists, err := tx.GetCategory(id); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindCategories, id, "already exists")
	}

	now := m.now()
	c := domain.Category{
		ID:          id,
		Name:        rec.str("name"),
		ParentID:    rec.str("parentId", "parent_id"),
		Description: rec.str("description"),
		CreatedAt:   rec.timestamp(now, "createdAt", "created_at"),
	}
	c.UpdatedAt = rec.timestamp(c.CreatedAt, "updatedAt", "updated_at")
	if err := c.Validate(); err != nil {
		return m.skip(store.KindCategories, id, "%v", err)
	}
	return tx.PutCategory(c)
}

func (m *Migrator) writeUser(tx store.Tx, id string, rec record) error {
	username := strings.ToLower(rec.str("username"))
	if _, exists, err := tx.GetUser(id); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindUsers, id, "already exists")
	}
	if _, exists, err := tx.FindUserByUsername(username); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindUsers, id, "username %q already exists", username)
	}

	secret := rec.str("passwordHash", "password")
	if secret == "" {
		return m.skip(store.KindUsers, id, "no password")
	}
	if !auth.IsPasswordHash(secret) {
		hash, err := auth.HashPassword(secret)
		if err != nil {
			return m.skip(store.KindUsers, id, "hash password: %v", err)
		}
		secret = hash
	}

	now := m.now()
	u := domain.User{
		ID:           id,
		Username:     username,
		Email:        rec.str("email"),
		PasswordHash: secret,
		Role:         domain.Role(strings.ToLower(rec.str("role"))),
		Active:       rec.boolean(true, "active", "isActive"),
		CreatedAt:    rec.timestamp(now, "createdAt", "created_at"),
	}
	if u.Role == "" {
		u.Role = domain.RoleCashier
	}
	u.UpdatedAt = rec.timestamp(u.CreatedAt, "updatedAt", "updated_at")
	if err := u.Validate(); err != nil {
		return m.skip(store.KindUsers, id, "%v", err)
	}
	return tx.PutUser(u)
}

func (m *Migrator) writeProduct(tx store.Tx, id string, rec record) error {
	if _, exists, err := tx.GetProduct(id); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindProducts, id, "already exists")
	}

	sku := strings.ToUpper(rec.str("sku", "SKU", "code"))
	if sku != "" {
		if other, exists, err := tx.FindProductBySKU(sku); err != nil {
			return err
		} else if exists {
			return m.skip(store.KindProducts, id, "sku %q already used by %s", sku, other.ID)
		}
	}

	now := m.now()
	price, _ := rec.money("price", "sellingPrice")
	cost, _ := rec.money("cost", "costPrice", "purchasePrice")
	p := domain.Product{
		ID:            id,
		Name:          rec.str("name"),
		SKU:           sku,
		Barcode:       rec.str("barcode"),
		Description:   rec.str("description"),
		Price:         price,
		Cost:          cost,
		Quantity:      max(rec.integer(0, "quantity", "stock", "qty"), 0),
		MinStockLevel: max(rec.integer(0, "minStockLevel", "minStock"), 0),
		CategoryID:    rec.str("categoryId", "category_id", "category"),
		Active:        rec.boolean(true, "active", "isActive"),
		CreatedAt:     rec.timestamp(now, "createdAt", "created_at"),
	}
	p.UpdatedAt = rec.timestamp(p.CreatedAt, "updatedAt", "updated_at")
	wholesalePrice, hasWholesale := rec.money("wholesalePrice")
	minQty := rec.optionalInt("wholesaleMinQuantity", "wholesaleMinQty")
	if hasWholesale && minQty != nil {
		p.WholesalePrice = decimal.NewNullDecimal(wholesalePrice)
		p.WholesaleMinQuantity = minQty
	}

	if err := p.Validate(); err != nil {
		return m.skip(store.KindProducts, id, "%v", err)
	}
	return tx.PutProduct(p)
}

// writeTransaction keeps the legacy financial snapshot as is. Migrated
// transactions never move stock.
func (m *Migrator) writeTransaction(tx store.Tx, id string, rec record) error {
	if _, exists, err := tx.GetTransaction(id); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindTransactions, id, "already exists")
	}

	now := m.now()
	t := domain.Transaction{
		ID:                    id,
		TransactionNumber:     rec.str("transactionNumber", "number", "invoiceNumber"),
		Type:                  domain.TransactionType(strings.ToLower(rec.str("type"))),
		Status:                domain.TransactionStatus(strings.ToLower(rec.str("status"))),
		PaymentMethod:         domain.PaymentMethod(strings.ToLower(rec.str("paymentMethod", "payment"))),
		CashierID:             rec.str("cashierId", "userId", "cashier"),
		RefundedTransactionID: rec.str("refundedTransactionId"),
		Notes:                 rec.str("notes", "note"),
		CreatedAt:             rec.timestamp(now, "createdAt", "timestamp", "date", "created_at"),
	}
	t.UpdatedAt = rec.timestamp(t.CreatedAt, "updatedAt", "updated_at")
	if t.Type == "" {
		t.Type = domain.TransactionSale
	}
	if t.Status == "" {
		t.Status = domain.StatusCompleted
	}
	if t.TransactionNumber == "" {
		t.TransactionNumber = xid.TransactionNumber(t.CreatedAt)
	}

	subtotal := decimal.Zero
	for _, item := range rec.list("items", "cart") {
		qty := item.integer(0, "quantity", "qty")
		unit, _ := item.money("unitPrice", "price")
		total, ok := item.money("totalPrice", "total", "subtotal")
		if !ok {
			total = unit.Mul(decimal.NewFromInt(int64(qty)))
		}
		t.Items = append(t.Items, domain.TransactionItem{
			ProductID:   item.str("productId", "id"),
			ProductName: item.str("productName", "name"),
			SKU:         strings.ToUpper(item.str("sku")),
			Quantity:    qty,
			UnitPrice:   unit,
			TotalPrice:  total,
		})
		subtotal = subtotal.Add(total)
	}

	if v, ok := rec.money("subtotal"); ok {
		subtotal = v
	}
	t.Subtotal = subtotal
	t.DiscountPercent, _ = rec.money("discountPercent")
	t.Discount, _ = rec.money("discount", "discountAmount")
	t.Tax, _ = rec.money("tax")
	if total, ok := rec.money("total", "grandTotal"); ok {
		t.Total = total
	} else {
		t.Total = subtotal.Sub(t.Discount).Add(t.Tax)
	}

	if err := t.Validate(); err != nil {
		return m.skip(store.KindTransactions, id, "%v", err)
	}
	return tx.PutTransaction(t)
}

func (m *Migrator) writeActivityLog(tx store.Tx, id string, rec record) error {
	existing, err := tx.ListActivityLogsByEntity(rec.str("entityType", "entity"), rec.str("entityId"))
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == id {
			return m.skip(store.KindActivityLogs, id, "already exists")
		}
	}

	details := rec.str("details")
	if obj := rec.object("details"); obj != nil {
		if raw, err := json.Marshal(obj); err == nil {
			details = string(raw)
		}
	}
	entry := domain.ActivityLog{
		ID:         id,
		UserID:     rec.str("userId", "user"),
		Action:     rec.str("action"),
		EntityType: rec.str("entityType", "entity"),
		EntityID:   rec.str("entityId"),
		Details:    details,
		CreatedAt:  rec.timestamp(m.now(), "createdAt", "timestamp", "created_at"),
	}
	if err := entry.Validate(); err != nil {
		return m.skip(store.KindActivityLogs, id, "%v", err)
	}
	return tx.PutActivityLog(entry)
}

// writeSettings only fills an empty store; fields missing from the legacy
// record keep their defaults.
func (m *Migrator) writeSettings(tx store.Tx, rec record) error {
	if _, exists, err := tx.GetSettings(); err != nil {
		return err
	} else if exists {
		return m.skip(store.KindSettings, domain.SettingsID, "already exists")
	}

	s := domain.DefaultSettings(m.now())
	if v := rec.str("storeName"); v != "" {
		s.StoreName = v
	}
	s.StoreAddress = rec.str("storeAddress", "address")
	s.StorePhone = rec.str("storePhone", "phone")
	if v := rec.str("currency"); v != "" {
		s.Currency = strings.ToUpper(v)
	}
	s.LowStockThreshold = rec.integer(s.LowStockThreshold, "lowStockThreshold")
	if v := rec.str("receiptFooter"); v != "" {
		s.ReceiptFooter = v
	}
	if printer := rec.object("printerSettings", "printer"); printer != nil {
		s.Printer = domain.PrinterSettings{
			Enabled:     printer.boolean(false, "enabled"),
			PrinterName: printer.str("printerName", "name"),
			PaperWidth:  printer.integer(s.Printer.PaperWidth, "paperWidth"),
			AutoPrint:   printer.boolean(false, "autoPrint"),
			Copies:      printer.integer(s.Printer.Copies, "copies"),
			ShowLogo:    printer.boolean(false, "showLogo"),
		}
	}
	if err := s.Validate(); err != nil {
		return m.skip(store.KindSettings, domain.SettingsID, "%v", err)
	}
	return tx.PutSettings(s)
}
