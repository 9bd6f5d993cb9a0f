package checkout

import (
	"strings"

	"checkout-builder/internal/models"

	"github.com/shopspring/decimal"
)

// Selection is the set of products a customer picked and how many of each
type Selection struct {
	ProductIDs []string       `json:"product_ids"`
	Quantities map[string]int `json:"quantities,omitempty"`
}

// NewSelection selects ids with the default quantity
func NewSelection(ids ...string) *Selection {
	return &Selection{ProductIDs: ids, Quantities: map[string]int{}}
}

// SetQuantity changes the quantity of a product. Non-positive values are
// ignored and the previous quantity stays in place.
func (s *Selection) SetQuantity(productID string, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	if s.Quantities == nil {
		s.Quantities = map[string]int{}
	}
	s.Quantities[productID] = quantity
	return true
}

// QuantityOf returns the quantity of a product, 1 when none was set
func (s *Selection) QuantityOf(productID string) int {
	if q, ok := s.Quantities[productID]; ok && q > 0 {
		return q
	}
	return 1
}

// Selected reports whether productID is part of the selection
func (s *Selection) Selected(productID string) bool {
	for _, id := range s.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Empty reports whether nothing is selected
func (s *Selection) Empty() bool {
	return s == nil || len(s.ProductIDs) == 0
}

// selectedProducts returns the page products that are selected, in page order.
// Ids not on the page are ignored and repeated ids count once.
func selectedProducts(page *models.CheckoutPage, sel *Selection) []*models.Product {
	if sel.Empty() {
		return nil
	}
	out := make([]*models.Product, 0, len(sel.ProductIDs))
	for i := range page.Products {
		if sel.Selected(page.Products[i].ID) {
			out = append(out, &page.Products[i])
		}
	}
	return out
}

// CalculateTotal sums price * quantity over the selected products.
// Product discounts are stored but not applied.
func CalculateTotal(page *models.CheckoutPage, sel *Selection) decimal.Decimal {
	total := decimal.Zero
	for _, p := range selectedProducts(page, sel) {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(sel.QuantityOf(p.ID)))))
	}
	return total
}

// RequiresShipping reports whether any selected product has to be shipped
func RequiresShipping(page *models.CheckoutPage, sel *Selection) bool {
	for _, p := range selectedProducts(page, sel) {
		if p.RequiresShipping {
			return true
		}
	}
	return false
}

// CustomerForm is the raw checkout form as submitted
type CustomerForm struct {
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	Phone               string            `json:"phone"`
	CPF                 string            `json:"cpf"`
	AddressStreet       string            `json:"address_street"`
	AddressNumber       string            `json:"address_number"`
	AddressComplement   string            `json:"address_complement"`
	AddressNeighborhood string            `json:"address_neighborhood"`
	AddressCity         string            `json:"address_city"`
	AddressState        string            `json:"address_state"`
	AddressZip          string            `json:"address_zip"`
	CustomFields        map[string]string `json:"custom_fields"`
}

type formField struct {
	name  string
	label string
	value string
}

// ValidateCustomerInfo checks the standard customer inputs. Address inputs are
// only required when requiresShipping is set; the complement is always optional.
func ValidateCustomerInfo(form *CustomerForm, requiresShipping bool) ValidationErrors {
	var errs ValidationErrors

	required := []formField{
		{"name", "name", form.Name},
		{"email", "email", form.Email},
		{"phone", "phone", form.Phone},
		{"cpf", "CPF", form.CPF},
	}
	if requiresShipping {
		required = append(required,
			formField{"address_street", "street", form.AddressStreet},
			formField{"address_number", "number", form.AddressNumber},
			formField{"address_neighborhood", "neighborhood", form.AddressNeighborhood},
			formField{"address_city", "city", form.AddressCity},
			formField{"address_state", "state", form.AddressState},
			formField{"address_zip", "zip code", form.AddressZip},
		)
	}

	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, newError(CodeMissingField, f.name, "%s is required", f.label))
			continue
		}
		if f.name == "email" && !isEmail(strings.TrimSpace(f.value)) {
			errs = append(errs, newError(CodeInvalidEmail, f.name, "email is not valid"))
		}
	}

	return errs
}

// ValidateCustomFields checks that every required custom field has an answer
func ValidateCustomFields(fields []models.CustomField, answers map[string]string) ValidationErrors {
	var errs ValidationErrors
	for _, f := range fields {
		if f.Required && strings.TrimSpace(answers[f.Name]) == "" {
			errs = append(errs, newError(CodeMissingField, f.Name, "%s is required", f.Label))
		}
	}
	return errs
}

// BuildOrder turns a selection and a form into an order ready to be stored.
// Product names and prices are copied so later edits to the page do not touch
// the order.
func BuildOrder(page *models.CheckoutPage, sel *Selection, form *CustomerForm) (*models.Order, error) {
	if sel.Empty() {
		return nil, newError(CodeNoProductSelected, "products", "select at least one product")
	}

	active := make(map[string]bool, len(page.Products))
	for _, p := range page.Products {
		if p.IsActive {
			active[p.ID] = true
		}
	}
	for _, id := range sel.ProductIDs {
		if !active[id] {
			err := newError(CodeUnknownProduct, "products", "product %s is not available", id)
			err.ID = id
			return nil, err
		}
	}

	shipping := RequiresShipping(page, sel)

	var errs ValidationErrors
	errs = append(errs, ValidateCustomerInfo(form, shipping)...)
	errs = append(errs, ValidateCustomFields(page.CustomFields, form.CustomFields)...)
	if len(errs) > 0 {
		return nil, errs
	}

	products := selectedProducts(page, sel)
	snapshots := make([]models.OrderProduct, 0, len(products))
	for _, p := range products {
		snapshots = append(snapshots, models.OrderProduct{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  sel.QuantityOf(p.ID),
		})
	}

	answers := make(map[string]string, len(page.CustomFields))
	for _, f := range page.CustomFields {
		answers[f.Name] = form.CustomFields[f.Name]
	}

	info := models.CustomerInfo{
		Name:         strings.TrimSpace(form.Name),
		Email:        strings.TrimSpace(form.Email),
		Phone:        strings.TrimSpace(form.Phone),
		CPF:          strings.TrimSpace(form.CPF),
		CustomFields: answers,
	}
	if shipping {
		info.Address = &models.Address{
			Street:       form.AddressStreet,
			Number:       form.AddressNumber,
			Complement:   form.AddressComplement,
			Neighborhood: form.AddressNeighborhood,
			City:         form.AddressCity,
			State:        form.AddressState,
			Zip:          form.AddressZip,
		}
	}

	return &models.Order{
		CheckoutPageID: page.ID,
		CustomerInfo:   info,
		Products:       snapshots,
		TotalAmount:    CalculateTotal(page, sel),
		Status:         models.OrderStatusPending,
	}, nil
}
