package checkout

import (
	"sort"

	"checkout-builder/internal/models"
)

// FormInput is one input of the customer info form
type FormInput struct {
	Name         string           `json:"name"`
	Label        string           `json:"label"`
	Type         models.FieldType `json:"type"`
	Required     bool             `json:"required"`
	ShippingOnly bool             `json:"shipping_only,omitempty"`
	Options      []string         `json:"options,omitempty"`
	Placeholder  string           `json:"placeholder,omitempty"`
}

// RenderedBlock is a layout block with its references resolved
type RenderedBlock struct {
	ID       string               `json:"id"`
	Type     models.ElementType   `json:"type"`
	Order    int                  `json:"order"`
	Content  models.LayoutContent `json:"content"`
	Field    *FormInput           `json:"field,omitempty"`
	Products []models.Product     `json:"products,omitempty"`
	Inputs   []FormInput          `json:"inputs,omitempty"`
}

// RenderedPage is what the storefront draws for a page
type RenderedPage struct {
	ID            string                 `json:"id"`
	Slug          string                 `json:"slug"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	LogoURL       string                 `json:"logo_url,omitempty"`
	Theme         models.CheckoutTheme   `json:"theme"`
	Pixels        *models.TrackingPixels `json:"pixels,omitempty"`
	Blocks        []RenderedBlock        `json:"blocks"`
	ShipsProducts bool                   `json:"ships_products"`
}

var customerInputs = []FormInput{
	{Name: "name", Label: "Full name", Type: models.FieldText, Required: true},
	{Name: "email", Label: "Email", Type: models.FieldEmail, Required: true},
	{Name: "phone", Label: "Phone", Type: models.FieldPhone, Required: true},
	{Name: "cpf", Label: "CPF", Type: models.FieldText, Required: true},
	{Name: "address_zip", Label: "ZIP code", Type: models.FieldText, Required: true, ShippingOnly: true},
	{Name: "address_street", Label: "Street", Type: models.FieldText, Required: true, ShippingOnly: true},
	{Name: "address_number", Label: "Number", Type: models.FieldText, Required: true, ShippingOnly: true},
	{Name: "address_complement", Label: "Complement", Type: models.FieldText, ShippingOnly: true},
	{Name: "address_neighborhood", Label: "Neighborhood", Type: models.FieldText, Required: true, ShippingOnly: true},
	{Name: "address_city", Label: "City", Type: models.FieldText, Required: true, ShippingOnly: true},
	{Name: "address_state", Label: "State", Type: models.FieldText, Required: true, ShippingOnly: true},
}

// DefaultLayout is used for pages saved without any layout blocks
func DefaultLayout(page *models.CheckoutPage) []models.LayoutElement {
	types := []models.ElementType{models.ElementTitle}
	if page.Description != "" {
		types = append(types, models.ElementDescription)
	}
	if page.LogoURL != "" {
		types = append(types, models.ElementLogo)
	}
	types = append(types, models.ElementProductList, models.ElementCustomerInfoForm, models.ElementButton)

	layout := make([]models.LayoutElement, len(types))
	for i, t := range types {
		layout[i] = models.LayoutElement{ID: "default-" + string(t), Type: t, Order: i}
	}
	return layout
}

// Render maps a stored page to the blocks the storefront shows. The same page
// always renders to the same structure.
func Render(page *models.CheckoutPage) *RenderedPage {
	layout := append([]models.LayoutElement(nil), page.Layout...)
	if len(layout) == 0 {
		layout = DefaultLayout(page)
	}
	sort.SliceStable(layout, func(i, j int) bool {
		if layout[i].Order != layout[j].Order {
			return layout[i].Order < layout[j].Order
		}
		return layout[i].ID < layout[j].ID
	})

	fields := append([]models.CustomField(nil), page.CustomFields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	fieldByID := make(map[string]models.CustomField, len(fields))
	for _, f := range fields {
		fieldByID[f.ID] = f
	}

	bound := map[string]bool{}
	for _, el := range layout {
		if el.Type == models.ElementTextField {
			bound[el.Content.FieldID] = true
		}
	}

	products := activeProducts(page)
	out := &RenderedPage{
		ID:          page.ID,
		Slug:        page.Slug,
		Title:       page.Title,
		Description: page.Description,
		LogoURL:     page.LogoURL,
		Theme:       page.Theme,
		Pixels:      page.Pixels,
		Blocks:      make([]RenderedBlock, 0, len(layout)),
	}
	for _, p := range products {
		if p.RequiresShipping {
			out.ShipsProducts = true
		}
	}

	for i, el := range layout {
		block := RenderedBlock{ID: el.ID, Type: el.Type, Order: i, Content: el.Content}

		switch el.Type {
		case models.ElementTitle:
			if block.Content.Text == "" {
				block.Content.Text = page.Title
			}
		case models.ElementDescription:
			if block.Content.Text == "" {
				block.Content.Text = page.Description
			}
		case models.ElementLogo:
			if block.Content.URL == "" {
				block.Content.URL = page.LogoURL
			}
		case models.ElementTextField:
			f, ok := fieldByID[el.Content.FieldID]
			if !ok {
				continue
			}
			input := fieldInput(f)
			block.Field = &input
		case models.ElementProductList:
			block.Products = products
		case models.ElementCustomerInfoForm:
			block.Inputs = append([]FormInput(nil), customerInputs...)
			for _, f := range fields {
				if !bound[f.ID] {
					block.Inputs = append(block.Inputs, fieldInput(f))
				}
			}
		}

		out.Blocks = append(out.Blocks, block)
	}

	for i := range out.Blocks {
		out.Blocks[i].Order = i
	}
	return out
}

func fieldInput(f models.CustomField) FormInput {
	return FormInput{
		Name:        f.Name,
		Label:       f.Label,
		Type:        f.Type,
		Required:    f.Required,
		Options:     f.Options,
		Placeholder: f.Placeholder,
	}
}

func activeProducts(page *models.CheckoutPage) []models.Product {
	products := make([]models.Product, 0, len(page.Products))
	for _, p := range page.Products {
		if p.IsActive {
			products = append(products, p)
		}
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Order < products[j].Order })
	return products
}
