package sqlstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

type gormTx struct {
	db       *gorm.DB
	lockRows bool
}

// take runs q and reports a missing row as ok == false.
func take[T any](q *gorm.DB, dest *T) (bool, error) {
	err := q.Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *gormTx) upsert(value any) error {
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func (t *gormTx) GetUser(id string) (domain.User, bool, error) {
	var user domain.User
	ok, err := take(t.db.Where("id = ?", id), &user)
	return user, ok, err
}

func (t *gormTx) FindUserByUsername(username string) (domain.User, bool, error) {
	var user domain.User
	ok, err := take(t.db.Where("LOWER(username) = LOWER(?)", username), &user)
	return user, ok, err
}

func (t *gormTx) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := t.db.Order("id").Find(&users).Error
	return users, err
}

func (t *gormTx) PutUser(user domain.User) error {
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return t.upsert(&user)
}

func (t *gormTx) DeleteUser(id string) error {
	return t.db.Where("id = ?", id).Delete(&domain.User{}).Error
}

func (t *gormTx) GetProduct(id string) (domain.Product, bool, error) {
	q := t.db.Where("id = ?", id)
	if t.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product domain.Product
	ok, err := take(q, &product)
	return product, ok, err
}

func (t *gormTx) FindProductBySKU(sku string) (domain.Product, bool, error) {
	var product domain.Product
	ok, err := take(t.db.Where("LOWER(sku) = LOWER(?)", sku), &product)
	return product, ok, err
}

func (t *gormTx) ListProducts() ([]domain.Product, error) {
	var products []domain.Product
	err := t.db.Order("id").Find(&products).Error
	return products, err
}

func (t *gormTx) ListProductsByCategory(categoryID string) ([]domain.Product, error) {
	var products []domain.Product
	err := t.db.Where("category_id = ?", categoryID).Order("id").Find(&products).Error
	return products, err
}

func (t *gormTx) ListProductsByMaxQuantity(max int) ([]domain.Product, error) {
	var products []domain.Product
	err := t.db.Where("quantity <= ?", max).Order("id").Find(&products).Error
	return products, err
}

func (t *gormTx) CountProductsByCategory(categoryID string) (int, error) {
	var count int64
	err := t.db.Model(&domain.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return int(count), err
}

func (t *gormTx) PutProduct(product domain.Product) error {
	product.CreatedAt = product.CreatedAt.UTC()
	product.UpdatedAt = product.UpdatedAt.UTC()
	return t.upsert(&product)
}

func (t *gormTx) DeleteProduct(id string) error {
	return t.db.Where("id = ?", id).Delete(&domain.Product{}).Error
}

func (t *gormTx) GetCategory(id string) (domain.Category, bool, error) {
	var category domain.Category
	ok, err := take(t.db.Where("id = ?", id), &category)
	return category, ok, err
}

func (t *gormTx) ListCategories() ([]domain.Category, error) {
	var categories []domain.Category
	err := t.db.Order("id").Find(&categories).Error
	return categories, err
}

func (t *gormTx) PutCategory(category domain.Category) error {
	category.CreatedAt = category.CreatedAt.UTC()
	category.UpdatedAt = category.UpdatedAt.UTC()
	return t.upsert(&category)
}

func (t *gormTx) DeleteCategory(id string) error {
	return t.db.Where("id = ?", id).Delete(&domain.Category{}).Error
}

func (t *gormTx) GetTransaction(id string) (domain.Transaction, bool, error) {
	var transaction domain.Transaction
	ok, err := take(t.db.Where("id = ?", id), &transaction)
	return transaction, ok, err
}

func (t *gormTx) ListTransactions() ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := t.db.Order("id").Find(&transactions).Error
	return transactions, err
}

func (t *gormTx) ListTransactionsBetween(start time.Time, end time.Time) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := t.db.
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("id").
		Find(&transactions).Error
	return transactions, err
}

func (t *gormTx) ListTransactionsByCashier(cashierID string) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := t.db.Where("cashier_id = ?", cashierID).Order("id").Find(&transactions).Error
	return transactions, err
}

func (t *gormTx) ListTransactionsByType(txType domain.TransactionType) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := t.db.Where("type = ?", string(txType)).Order("id").Find(&transactions).Error
	return transactions, err
}

func (t *gormTx) CountTransactionsByCashier(cashierID string) (int, error) {
	var count int64
	err := t.db.Model(&domain.Transaction{}).Where("cashier_id = ?", cashierID).Count(&count).Error
	return int(count), err
}

func (t *gormTx) PutTransaction(transaction domain.Transaction) error {
	transaction.CreatedAt = transaction.CreatedAt.UTC()
	transaction.UpdatedAt = transaction.UpdatedAt.UTC()
	return t.upsert(&transaction)
}

func (t *gormTx) DeleteTransaction(id string) error {
	return t.db.Where("id = ?", id).Delete(&domain.Transaction{}).Error
}

func (t *gormTx) ListActivityLogs() ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := t.db.Order("id").Find(&entries).Error
	return entries, err
}

func (t *gormTx) ListActivityLogsByUser(userID string) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := t.db.Where("user_id = ?", userID).Order("id").Find(&entries).Error
	return entries, err
}

func (t *gormTx) ListActivityLogsByEntity(entityType string, entityID string) ([]domain.ActivityLog, error) {
	q := t.db.Where("entity_type = ?", entityType)
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}
	var entries []domain.ActivityLog
	err := q.Order("id").Find(&entries).Error
	return entries, err
}

func (t *gormTx) PutActivityLog(entry domain.ActivityLog) error {
	entry.CreatedAt = entry.CreatedAt.UTC()
	return t.upsert(&entry)
}

func (t *gormTx) DeleteActivityLogsBefore(cutoff time.Time) (int, error) {
	res := t.db.Where("created_at < ?", cutoff.UTC()).Delete(&domain.ActivityLog{})
	return int(res.RowsAffected), res.Error
}

func (t *gormTx) GetSettings() (domain.Settings, bool, error) {
	var settings domain.Settings
	ok, err := take(t.db.Where("id = ?", domain.SettingsID), &settings)
	return settings, ok, err
}

func (t *gormTx) PutSettings(settings domain.Settings) error {
	settings.CreatedAt = settings.CreatedAt.UTC()
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return t.upsert(&settings)
}

func (t *gormTx) GetMeta(key string) (string, bool, error) {
	var entry metaEntry
	ok, err := take(t.db.Where("meta_key = ?", key), &entry)
	return entry.Value, ok, err
}

func (t *gormTx) PutMeta(key string, value string) error {
	return t.upsert(&metaEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()})
}

func (t *gormTx) DeleteMeta(key string) error {
	return t.db.Where("meta_key = ?", key).Delete(&metaEntry{}).Error
}

func (t *gormTx) Count(kind store.Kind) (int, error) {
	model, err := modelFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = t.db.Model(model).Count(&count).Error
	return int(count), err
}

func (t *gormTx) Clear(kind store.Kind) error {
	model, err := modelFor(kind)
	if err != nil {
		return err
	}
	return t.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
}

func modelFor(kind store.Kind) (any, error) {
	switch kind {
	case store.KindUsers:
		return &domain.User{}, nil
	case store.KindProducts:
		return &domain.Product{}, nil
	case store.KindCategories:
		return &domain.Category{}, nil
	case store.KindTransactions:
		return &domain.Transaction{}, nil
	case store.KindActivityLogs:
		return &domain.ActivityLog{}, nil
	case store.KindSettings:
		return &domain.Settings{}, nil
	case store.KindMeta:
		return &metaEntry{}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}
