package checkout

import (
	"regexp"
	"strings"

	"checkout-builder/internal/models"

	"github.com/google/uuid"
)

var fieldNameWhitespace = regexp.MustCompile(`\s+`)

// FieldName turns a label into the machine key answers are stored under
func FieldName(label string) string {
	return fieldNameWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
}

// AddCustomField appends field to the page and returns it as stored
func AddCustomField(page *models.CheckoutPage, field models.CustomField) models.CustomField {
	prepareField(&field)
	var at int
	page.CustomFields, at = insertAt(page.CustomFields, -1, field)
	return page.CustomFields[at]
}

// AddTextField creates a custom field together with the text_field block that shows it.
// The block is inserted at index at of the layout, or appended when at is out of range.
func AddTextField(page *models.CheckoutPage, field models.CustomField, at int) (models.CustomField, models.LayoutElement) {
	stored := AddCustomField(page, field)

	element := models.LayoutElement{
		ID:   uuid.New().String(),
		Type: models.ElementTextField,
		Content: models.LayoutContent{
			Text:        stored.Label,
			Placeholder: stored.Placeholder,
			Required:    stored.Required,
			FieldID:     stored.ID,
		},
	}
	return stored, AddLayoutElement(page, element, at)
}

// MoveCustomField reorders the custom fields
func MoveCustomField(page *models.CheckoutPage, from, to int) error {
	fields, err := moveItem(page.CustomFields, from, to)
	page.CustomFields = fields
	return err
}

// RemoveFieldAndLinkedElements removes a custom field and every text_field block
// bound to it. It is the only way fields leave a page, so a block never points at
// a missing field.
func RemoveFieldAndLinkedElements(page *models.CheckoutPage, fieldID string) bool {
	removed := false

	for i := len(page.CustomFields) - 1; i >= 0; i-- {
		if page.CustomFields[i].ID == fieldID {
			page.CustomFields = removeAt(page.CustomFields, i)
			removed = true
		}
	}

	for i := len(page.Layout) - 1; i >= 0; i-- {
		el := page.Layout[i]
		if el.Type == models.ElementTextField && el.Content.FieldID == fieldID {
			page.Layout = removeAt(page.Layout, i)
			removed = true
		}
	}

	return removed
}

// RemoveLayoutElement removes a block. Removing a text_field block also removes
// the field it is bound to.
func RemoveLayoutElement(page *models.CheckoutPage, elementID string) bool {
	for i, el := range page.Layout {
		if el.ID != elementID {
			continue
		}
		if el.Type == models.ElementTextField && el.Content.FieldID != "" {
			RemoveFieldAndLinkedElements(page, el.Content.FieldID)
			// the block may point at a field that is already gone
			removeElementByID(page, elementID)
			return true
		}
		page.Layout = removeAt(page.Layout, i)
		return true
	}
	return false
}

func removeElementByID(page *models.CheckoutPage, elementID string) bool {
	for i, el := range page.Layout {
		if el.ID == elementID {
			page.Layout = removeAt(page.Layout, i)
			return true
		}
	}
	return false
}

// AddLayoutElement inserts a block at index at (appends when out of range)
func AddLayoutElement(page *models.CheckoutPage, element models.LayoutElement, at int) models.LayoutElement {
	if element.ID == "" {
		element.ID = uuid.New().String()
	}
	var idx int
	page.Layout, idx = insertAt(page.Layout, at, element)
	return page.Layout[idx]
}

// MoveLayoutElement reorders the layout
func MoveLayoutElement(page *models.CheckoutPage, from, to int) error {
	layout, err := moveItem(page.Layout, from, to)
	page.Layout = layout
	return err
}

// AddProduct appends a product to the page
func AddProduct(page *models.CheckoutPage, product models.Product) models.Product {
	prepareProduct(&product)
	var at int
	page.Products, at = insertAt(page.Products, -1, product)
	return page.Products[at]
}

// RemoveProduct removes the product with the given id
func RemoveProduct(page *models.CheckoutPage, productID string) bool {
	for i := range page.Products {
		if page.Products[i].ID == productID {
			page.Products = removeAt(page.Products, i)
			return true
		}
	}
	return false
}

// MoveProduct reorders the products
func MoveProduct(page *models.CheckoutPage, from, to int) error {
	products, err := moveItem(page.Products, from, to)
	page.Products = products
	return err
}

// NormalizePage brings a submitted definition into its canonical form before it is
// validated and stored: collections sorted by their submitted order and renumbered,
// ids assigned, field names derived, shipping forced for physical goods and blocks
// bound to unknown fields dropped.
func NormalizePage(page *models.CheckoutPage) {
	page.Slug = NormalizeSlug(page.Slug)
	normalizeTheme(&page.Theme)

	for i := range page.CustomFields {
		prepareField(&page.CustomFields[i])
	}
	page.CustomFields = sortAndRenumber(page.CustomFields)

	for i := range page.Products {
		prepareProduct(&page.Products[i])
	}
	page.Products = sortAndRenumber(page.Products)

	fieldIDs := make(map[string]bool, len(page.CustomFields))
	for _, f := range page.CustomFields {
		fieldIDs[f.ID] = true
	}

	layout := page.Layout[:0]
	for _, el := range page.Layout {
		if el.Type == models.ElementTextField && !fieldIDs[el.Content.FieldID] {
			continue
		}
		if el.ID == "" {
			el.ID = uuid.New().String()
		}
		layout = append(layout, el)
	}
	page.Layout = sortAndRenumber(layout)

	// stored pages always carry empty collections, never nil
	if page.CustomFields == nil {
		page.CustomFields = []models.CustomField{}
	}
	if page.Products == nil {
		page.Products = []models.Product{}
	}
	if page.Layout == nil {
		page.Layout = []models.LayoutElement{}
	}
}

func prepareField(f *models.CustomField) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Name == "" {
		f.Name = f.Label
	}
	f.Name = FieldName(f.Name)
	if f.Type == "" {
		f.Type = models.FieldText
	}
	if f.Type != models.FieldSelect || len(f.Options) == 0 {
		f.Options = nil
	}
}

func prepareProduct(p *models.Product) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Type == "" {
		p.Type = models.ProductDigital
	}
	// prices are stored as NUMERIC(12,2)
	p.Price = p.Price.Round(2)
	if p.Type == models.ProductPhysical {
		p.RequiresShipping = true
	}
	if p.Discount < 0 {
		p.Discount = 0
	}
	if p.Discount > 100 {
		p.Discount = 100
	}
}

func normalizeTheme(t *models.CheckoutTheme) {
	def := models.DefaultTheme()
	if t.PrimaryColor == "" {
		t.PrimaryColor = def.PrimaryColor
	}
	if t.SecondaryColor == "" {
		t.SecondaryColor = def.SecondaryColor
	}
	if t.BackgroundColor == "" {
		t.BackgroundColor = def.BackgroundColor
	}
	if t.TextColor == "" {
		t.TextColor = def.TextColor
	}
	if t.FontFamily == "" {
		t.FontFamily = def.FontFamily
	}
	if t.BorderRadius == "" {
		t.BorderRadius = def.BorderRadius
	}
	switch t.ButtonStyle {
	case models.ButtonRounded, models.ButtonSquare, models.ButtonPill:
	default:
		t.ButtonStyle = def.ButtonStyle
	}
}
