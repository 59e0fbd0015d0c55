package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func (u User) Validate() error {
	return validateStruct(u)
}

func (c Category) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.ParentID != "" && c.ParentID == c.ID {
		return errors.New("parentId: category cannot be its own parent")
	}
	return nil
}

func (p Product) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if err := nonNegative("price", p.Price); err != nil {
		return err
	}
	if err := nonNegative("cost", p.Cost); err != nil {
		return err
	}
	if p.WholesalePrice.Valid != (p.WholesaleMinQuantity != nil) {
		return errors.New("wholesalePrice and wholesaleMinQuantity must be set together")
	}
	if p.WholesalePrice.Valid {
		return nonNegative("wholesalePrice", p.WholesalePrice.Decimal)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateStruct(t); err != nil {
		return err
	}
	for _, field := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", t.Subtotal},
		{"discount", t.Discount},
		{"tax", t.Tax},
		{"total", t.Total},
		{"discountPercent", t.DiscountPercent},
	} {
		if err := nonNegative(field.name, field.value); err != nil {
			return err
		}
	}
	if t.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("discountPercent: must not exceed 100")
	}
	for i, item := range t.Items {
		if err := nonNegative(fmt.Sprintf("items[%d].unitPrice", i), item.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (a ActivityLog) Validate() error {
	return validateStruct(a)
}

func (s Settings) Validate() error {
	return validateStruct(s)
}

func (p PrinterSettings) Validate() error {
	return validateStruct(p)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func nonNegative(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("%s: must not be negative", field)
	}
	return nil
}
