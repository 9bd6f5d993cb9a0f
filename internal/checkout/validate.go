package checkout

import (
	"strings"

	"checkout-builder/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// isAbsoluteURL reports whether raw is a well-formed absolute URL
func isAbsoluteURL(raw string) bool {
	return validate.Var(raw, "required,url") == nil
}

func isEmail(raw string) bool {
	return validate.Var(raw, "required,email") == nil
}

// PageViolations returns every problem that keeps page from being saved,
// in product iteration order.
func PageViolations(page *models.CheckoutPage) ValidationErrors {
	var errs ValidationErrors

	if len(page.Products) == 0 {
		return append(errs, newError(CodeEmptyProducts, "products", "add at least one product"))
	}

	productIDs := make(map[string]bool, len(page.Products))
	for i := range page.Products {
		p := &page.Products[i]
		errs = append(errs, productViolations(i, p)...)
		if p.ID != "" && productIDs[p.ID] {
			errs = append(errs, productError(CodeDuplicateID, i, p.ID, "id",
				"product %d: id %q is used by another product", i+1, p.ID))
		}
		productIDs[p.ID] = true
	}

	fieldIDs := make(map[string]bool, len(page.CustomFields))
	for _, f := range page.CustomFields {
		if f.ID != "" && fieldIDs[f.ID] {
			errs = append(errs, newError(CodeDuplicateID, "custom_fields",
				"custom field id %q is used more than once", f.ID))
		}
		fieldIDs[f.ID] = true
	}

	return errs
}

// ValidatePage reports the first problem found in page, or nil
func ValidatePage(page *models.CheckoutPage) error {
	if first := PageViolations(page).First(); first != nil {
		return first
	}
	return nil
}

// ValidateProduct checks a single product at position index
func ValidateProduct(index int, p *models.Product) error {
	return productViolations(index, p).orNil()
}

func productViolations(index int, p *models.Product) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, productError(CodeInvalidProductName, index, p.ID, "name",
			"product %d: name is required", index+1))
	}

	if !p.Price.IsPositive() {
		errs = append(errs, productError(CodeInvalidPrice, index, p.ID, "price",
			"product %d: price must be greater than zero", index+1))
	}

	if p.ImageURL != "" && !isAbsoluteURL(p.ImageURL) {
		errs = append(errs, productError(CodeInvalidURL, index, p.ID, "image_url",
			"product %d: image url is not a valid url", index+1))
	}

	if p.DigitalFileURL != "" && !isAbsoluteURL(p.DigitalFileURL) {
		errs = append(errs, productError(CodeInvalidURL, index, p.ID, "digital_file_url",
			"product %d: digital file url is not a valid url", index+1))
	}

	return errs
}

// ValidateSlug rejects slugs that normalize to nothing
func ValidateSlug(slug string) error {
	if NormalizeSlug(slug) == "" {
		return newError(CodeEmptySlug, "slug", "slug is required")
	}
	return nil
}
