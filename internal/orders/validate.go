package orders

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

const (
	MinQuantity = 1
	MaxQuantity = 20
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\-\s()]{7,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type createOrderRequest struct {
	CustomerName    string            `json:"customer_name" validate:"required,max=255"`
	CustomerAddress string            `json:"customer_address" validate:"required,max=1000"`
	CustomerPhone   string            `json:"customer_phone" validate:"required,max=50,phone"`
	CustomerEmail   string            `json:"customer_email" validate:"required,max=255,email"`
	Items           []createOrderLine `json:"items" validate:"required,min=1,dive"`
}

// createOrderLine accepts a unit price for compatibility with older clients;
// it is never read.
type createOrderLine struct {
	MenuItemID string `json:"menu_item_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"min=1,max=20"`
	UnitPrice  *int64 `json:"unit_price,omitempty" validate:"-"`
}

func (r createOrderRequest) input() CreateOrderInput {
	lines := make([]LineRequest, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, LineRequest{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}
	return CreateOrderInput{
		Customer: domain.Customer{
			Name:    strings.TrimSpace(r.CustomerName),
			Address: strings.TrimSpace(r.CustomerAddress),
			Phone:   strings.TrimSpace(r.CustomerPhone),
			Email:   strings.TrimSpace(r.CustomerEmail),
		},
		Items: lines,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// validateRequest runs the struct rules and converts failures into a
// *domain.ValidationError naming the offending JSON fields.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &domain.ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath strips the struct name from a namespace like
// "createOrderRequest.items[0].quantity".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "uuid":
		return "must be a valid UUID"
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("must contain %s %s item(s)", bound, fe.Param())
		default:
			return fmt.Sprintf("must be %s %s", bound, fe.Param())
		}
	default:
		return "is invalid"
	}
}

// Validate checks the invariants every creation must satisfy regardless of
// the transport it arrived on.
func (in CreateOrderInput) Validate() error {
	if len(in.Items) == 0 {
		return domain.NewValidationError("items", "must contain at least 1 item(s)")
	}

	out := &domain.ValidationError{}
	for i, item := range in.Items {
		if item.MenuItemID == "" {
			out.Fields = append(out.Fields, domain.FieldError{
				Field:   fmt.Sprintf("items[%d].menu_item_id", i),
				Message: "is required",
			})
		}
		if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
			out.Fields = append(out.Fields, domain.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity),
			})
		}
	}
	if len(out.Fields) > 0 {
		return out
	}
	return nil
}
