package store

import (
	"fmt"
	"slices"
	"time"

	"kasirlokal/internal/domain"
)

// Guard wraps a backend Tx with the checks every backend shares: writes are
// limited to the declared kinds (none when readOnly) and records are
// validated before they reach storage.
func Guard(tx Tx, kinds []Kind, readOnly bool) Tx {
	return &guardedTx{Tx: tx, kinds: kinds, readOnly: readOnly}
}

type guardedTx struct {
	Tx
	kinds    []Kind
	readOnly bool
}

func (g *guardedTx) allow(kind Kind) error {
	if g.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, kind)
	}
	if !slices.Contains(g.kinds, kind) {
		return fmt.Errorf("%w: %s", ErrKindNotInScope, kind)
	}
	return nil
}

type validatable interface {
	Validate() error
}

func invalid(kind Kind, id string, record validatable) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidRecord, kind, id, err)
	}
	return nil
}

func (g *guardedTx) PutUser(user domain.User) error {
	if err := g.allow(KindUsers); err != nil {
		return err
	}
	if err := invalid(KindUsers, user.ID, user); err != nil {
		return err
	}
	return g.Tx.PutUser(user)
}

func (g *guardedTx) DeleteUser(id string) error {
	if err := g.allow(KindUsers); err != nil {
		return err
	}
	return g.Tx.DeleteUser(id)
}

func (g *guardedTx) PutProduct(product domain.Product) error {
	if err := g.allow(KindProducts); err != nil {
		return err
	}
	if err := invalid(KindProducts, product.ID, product); err != nil {
		return err
	}
	return g.Tx.PutProduct(product)
}

func (g *guardedTx) DeleteProduct(id string) error {
	if err := g.allow(KindProducts); err != nil {
		return err
	}
	return g.Tx.DeleteProduct(id)
}

func (g *guardedTx) PutCategory(category domain.Category) error {
	if err := g.allow(KindCategories); err != nil {
		return err
	}
	if err := invalid(KindCategories, category.ID, category); err != nil {
		return err
	}
	return g.Tx.PutCategory(category)
}

func (g *guardedTx) DeleteCategory(id string) error {
	if err := g.allow(KindCategories); err != nil {
		return err
	}
	return g.Tx.DeleteCategory(id)
}

func (g *guardedTx) PutTransaction(transaction domain.Transaction) error {
	if err := g.allow(KindTransactions); err != nil {
		return err
	}
	if err := invalid(KindTransactions, transaction.ID, transaction); err != nil {
		return err
	}
	return g.Tx.PutTransaction(transaction)
}

func (g *guardedTx) DeleteTransaction(id string) error {
	if err := g.allow(KindTransactions); err != nil {
		return err
	}
	return g.Tx.DeleteTransaction(id)
}

func (g *guardedTx) PutActivityLog(entry domain.ActivityLog) error {
	if err := g.allow(KindActivityLogs); err != nil {
		return err
	}
	if err := invalid(KindActivityLogs, entry.ID, entry); err != nil {
		return err
	}
	return g.Tx.PutActivityLog(entry)
}

func (g *guardedTx) DeleteActivityLogsBefore(cutoff time.Time) (int, error) {
	if err := g.allow(KindActivityLogs); err != nil {
		return 0, err
	}
	return g.Tx.DeleteActivityLogsBefore(cutoff)
}

func (g *guardedTx) PutSettings(settings domain.Settings) error {
	if err := g.allow(KindSettings); err != nil {
		return err
	}
	if err := invalid(KindSettings, settings.ID, settings); err != nil {
		return err
	}
	return g.Tx.PutSettings(settings)
}

func (g *guardedTx) PutMeta(key string, value string) error {
	if err := g.allow(KindMeta); err != nil {
		return err
	}
	return g.Tx.PutMeta(key, value)
}

func (g *guardedTx) DeleteMeta(key string) error {
	if err := g.allow(KindMeta); err != nil {
		return err
	}
	return g.Tx.DeleteMeta(key)
}

func (g *guardedTx) Clear(kind Kind) error {
	if err := g.allow(kind); err != nil {
		return err
	}
	return g.Tx.Clear(kind)
}
