package checkout

import (
	"sort"
	"strings"

	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/georgemunganga/storefront/internal/validation"
	"github.com/google/uuid"
)

// Request carries the shipping and optional billing contact for an order.
// Empty billing fields fall back to the matching shipping field.
type Request struct {
	ShippingName       string `json:"shipping_name" validate:"required,max=255"`
	ShippingEmail      string `json:"shipping_email" validate:"required,max=255,email"`
	ShippingPhone      string `json:"shipping_phone" validate:"omitempty,max=20"`
	ShippingAddress    string `json:"shipping_address" validate:"required,max=500"`
	ShippingCity       string `json:"shipping_city" validate:"required,max=100"`
	ShippingState      string `json:"shipping_state" validate:"omitempty,max=100"`
	ShippingPostalCode string `json:"shipping_postal_code" validate:"required,max=20"`
	ShippingCountry    string `json:"shipping_country" validate:"omitempty,max=100"`

	BillingName       string `json:"billing_name" validate:"omitempty,max=255"`
	BillingEmail      string `json:"billing_email" validate:"omitempty,max=255,email"`
	BillingPhone      string `json:"billing_phone" validate:"omitempty,max=20"`
	BillingAddress    string `json:"billing_address" validate:"omitempty,max=500"`
	BillingCity       string `json:"billing_city" validate:"omitempty,max=100"`
	BillingState      string `json:"billing_state" validate:"omitempty,max=100"`
	BillingPostalCode string `json:"billing_postal_code" validate:"omitempty,max=20"`
	BillingCountry    string `json:"billing_country" validate:"omitempty,max=100"`
}

// ValidationError lists the rejected fields with a message each.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid checkout request: " + strings.Join(parts, "; ")
}

// Validate trims every field and checks presence, e-mail format and length.
func (r *Request) Validate() error {
	r.trim()
	fields, err := validation.Struct(r)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r *Request) trim() {
	for _, p := range []*string{
		&r.ShippingName, &r.ShippingEmail, &r.ShippingPhone, &r.ShippingAddress,
		&r.ShippingCity, &r.ShippingState, &r.ShippingPostalCode, &r.ShippingCountry,
		&r.BillingName, &r.BillingEmail, &r.BillingPhone, &r.BillingAddress,
		&r.BillingCity, &r.BillingState, &r.BillingPostalCode, &r.BillingCountry,
	} {
		*p = strings.TrimSpace(*p)
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Addresses builds the shipping and billing snapshots.
func (r *Request) Addresses(defaultCountry string) (shipping, billing order.Address) {
	shipping = order.Address{
		Name:       r.ShippingName,
		Email:      r.ShippingEmail,
		Phone:      r.ShippingPhone,
		Address:    r.ShippingAddress,
		City:       r.ShippingCity,
		State:      r.ShippingState,
		PostalCode: r.ShippingPostalCode,
		Country:    fallback(r.ShippingCountry, defaultCountry),
	}
	billing = order.Address{
		Name:       fallback(r.BillingName, shipping.Name),
		Email:      fallback(r.BillingEmail, shipping.Email),
		Phone:      fallback(r.BillingPhone, shipping.Phone),
		Address:    fallback(r.BillingAddress, shipping.Address),
		City:       fallback(r.BillingCity, shipping.City),
		State:      fallback(r.BillingState, shipping.State),
		PostalCode: fallback(r.BillingPostalCode, shipping.PostalCode),
		Country:    fallback(r.BillingCountry, shipping.Country),
	}
	return shipping, billing
}

// Receipt is returned to the client once the order is accepted.
type Receipt struct {
	ID              uuid.UUID    `json:"id"`
	OrderNumber     string       `json:"order_number"`
	Status          order.Status `json:"status"`
	StatusURL       string       `json:"status_url"`
	ConfirmationURL string       `json:"confirmation_url"`
}

// NewReceipt describes o for the client.
func NewReceipt(o *order.Order) Receipt {
	return Receipt{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		StatusURL:       order.StatusURL(o.ID),
		ConfirmationURL: order.ConfirmationURL(o.ID),
	}
}

// Summary previews what an order would contain right now.
type Summary struct {
	Lines []*cart.Line `json:"items"`
	cart.Amounts
	Count int `json:"count"`
}
