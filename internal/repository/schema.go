package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"medmanage/internal/domain"
)

// Schema enforces field rules at the storage boundary. A disabled schema accepts anything.
type Schema struct {
	enabled  bool
	validate *validator.Validate
}

// NewSchema builds a schema; enabled toggles required-field and range checks.
func NewSchema(enabled bool) *Schema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Schema{enabled: enabled, validate: v}
}

// Enabled reports whether checks are applied.
func (s *Schema) Enabled() bool { return s != nil && s.enabled }

// Medicine validates a full medicine record.
func (s *Schema) Medicine(m domain.Medicine) error {
	if !s.Enabled() {
		return nil
	}
	return s.check(m)
}

// Order validates a full order record.
func (s *Schema) Order(o domain.Order) error {
	if !s.Enabled() {
		return nil
	}
	return s.check(o)
}

// MedicinePatch validates only the fields p sets, as they appear in the merged record m.
// Stored values the patch leaves alone, such as an oversold stock, are not re-checked.
func (s *Schema) MedicinePatch(m domain.Medicine, p domain.MedicinePatch) error {
	if !s.Enabled() {
		return nil
	}
	fields := medicinePatchFields(p)
	if len(fields) == 0 {
		return nil
	}
	return s.report(s.validate.StructPartial(m, fields...))
}

// OrderPatch validates only the fields p sets, as they appear in the merged record o.
func (s *Schema) OrderPatch(o domain.Order, p domain.OrderPatch) error {
	if !s.Enabled() {
		return nil
	}
	fields := orderPatchFields(p)
	if len(fields) == 0 {
		return nil
	}
	return s.report(s.validate.StructPartial(o, fields...))
}

// partial validation matches Go field names, not json names
func medicinePatchFields(p domain.MedicinePatch) []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "Name")
	}
	if p.Batch != nil {
		fields = append(fields, "Batch")
	}
	if p.Manufacturer != nil {
		fields = append(fields, "Manufacturer")
	}
	if p.Expiry != nil {
		fields = append(fields, "Expiry")
	}
	if p.Stock != nil {
		fields = append(fields, "Stock")
	}
	if p.Price != nil {
		fields = append(fields, "Price")
	}
	return fields
}

var orderItemFields = []string{"MedicineID", "Name", "Batch", "Price", "Quantity"}

func orderPatchFields(p domain.OrderPatch) []string {
	var fields []string
	if p.Date != nil {
		fields = append(fields, "Date")
	}
	if p.Customer != nil {
		fields = append(fields, "Customer")
	}
	if p.Status != nil {
		fields = append(fields, "Status")
	}
	if p.Items != nil {
		// nested elements are only checked when named one by one
		fields = append(fields, "Items")
		for i := range *p.Items {
			for _, f := range orderItemFields {
				fields = append(fields, fmt.Sprintf("Items[%d].%s", i, f))
			}
		}
	}
	return fields
}

func (s *Schema) check(v any) error {
	return s.report(s.validate.Struct(v))
}

func (s *Schema) report(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
