package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ButtonStyle controls the corner shape of checkout buttons
type ButtonStyle string

const (
	ButtonRounded ButtonStyle = "rounded"
	ButtonSquare  ButtonStyle = "square"
	ButtonPill    ButtonStyle = "pill"
)

// CheckoutTheme is the visual configuration embedded in every page
type CheckoutTheme struct {
	PrimaryColor    string      `json:"primary_color"`
	SecondaryColor  string      `json:"secondary_color"`
	BackgroundColor string      `json:"background_color"`
	TextColor       string      `json:"text_color"`
	FontFamily      string      `json:"font_family"`
	BorderRadius    string      `json:"border_radius"`
	ButtonStyle     ButtonStyle `json:"button_style"`
}

// DefaultTheme returns the theme a new page starts with
func DefaultTheme() CheckoutTheme {
	return CheckoutTheme{
		PrimaryColor:    "#3b82f6",
		SecondaryColor:  "#1e40af",
		BackgroundColor: "#ffffff",
		TextColor:       "#1f2937",
		FontFamily:      "Inter",
		BorderRadius:    "8px",
		ButtonStyle:     ButtonRounded,
	}
}

// TrackingPixels holds optional analytics integrations of a page
type TrackingPixels struct {
	FacebookPixelID   string `json:"facebook_pixel_id,omitempty"`
	GoogleAnalyticsID string `json:"google_analytics_id,omitempty"`
	TikTokPixelID     string `json:"tiktok_pixel_id,omitempty"`
}

// FieldType is the input kind of a custom field
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
)

// CustomField is an extra input collected from the customer
type CustomField struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Order       int       `json:"order"`
}

func (f *CustomField) Position() int  { return f.Order }
func (f *CustomField) SetOrder(i int) { f.Order = i }

// ProductType distinguishes downloadable from shipped goods
type ProductType string

const (
	ProductDigital  ProductType = "digital"
	ProductPhysical ProductType = "physical"
)

// Product is an item sold on a checkout page
type Product struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Description      string          `db:"description" json:"description"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Type             ProductType     `db:"type" json:"type"`
	ImageURL         string          `db:"image_url" json:"image_url,omitempty"`
	DigitalFileURL   string          `db:"digital_file_url" json:"digital_file_url,omitempty"`
	Discount         int             `db:"discount" json:"discount"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	RequiresShipping bool            `db:"requires_shipping" json:"requires_shipping"`
	Order            int             `db:"position" json:"order"`
}

func (p *Product) Position() int  { return p.Order }
func (p *Product) SetOrder(i int) { p.Order = i }

// ElementType is the kind of a layout block
type ElementType string

const (
	ElementTitle            ElementType = "title"
	ElementDescription      ElementType = "description"
	ElementLogo             ElementType = "logo"
	ElementTextField        ElementType = "text_field"
	ElementButton           ElementType = "button"
	ElementImage            ElementType = "image"
	ElementSpacer           ElementType = "spacer"
	ElementDivider          ElementType = "divider"
	ElementProductList      ElementType = "product_list"
	ElementCustomerInfoForm ElementType = "customer_info_form"
)

// ElementStyle carries per-block presentation overrides
type ElementStyle struct {
	FontSize        string `json:"fontSize,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextAlign       string `json:"textAlign,omitempty"`
	Height          string `json:"height,omitempty"`
	Width           string `json:"width,omitempty"`
}

// LayoutContent is the payload of a layout block; which keys matter depends on the type
type LayoutContent struct {
	Text        string        `json:"text,omitempty"`
	URL         string        `json:"url,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required,omitempty"`
	FieldID     string        `json:"fieldId,omitempty"`
	Style       *ElementStyle `json:"style,omitempty"`
}

// LayoutElement is one positioned block of a page
type LayoutElement struct {
	ID      string        `json:"id"`
	Type    ElementType   `json:"type"`
	Content LayoutContent `json:"content"`
	Order   int           `json:"order"`
}

func (e *LayoutElement) Position() int  { return e.Order }
func (e *LayoutElement) SetOrder(i int) { e.Order = i }

// CheckoutPage is the stored definition of one checkout page
type CheckoutPage struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	LogoURL       string          `json:"logo_url,omitempty"`
	Theme         CheckoutTheme   `json:"theme"`
	CustomFields  []CustomField   `json:"custom_fields"`
	Products      []Product       `json:"products"`
	Layout        []LayoutElement `json:"layout"`
	IsActive      bool            `json:"is_active"`
	Pixels        *TrackingPixels `json:"pixels,omitempty"`
	UtmifyKey     string          `json:"utmify_key,omitempty"`
	DeliveryEmail string          `json:"delivery_email,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Address is the shipping address of an order
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// CustomerInfo is what the customer typed into the checkout form
type CustomerInfo struct {
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	CPF          string            `json:"cpf"`
	Address      *Address          `json:"address,omitempty"`
	CustomFields map[string]string `json:"custom_fields"`
}

// OrderProduct is a snapshot of a product taken when the order was submitted
type OrderProduct struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Order represents a customer order placed on a checkout page
type Order struct {
	ID             string          `json:"id"`
	CheckoutPageID string          `json:"checkout_page_id"`
	CustomerInfo   CustomerInfo    `json:"customer_info"`
	Products       []OrderProduct  `json:"products"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Payment methods
const (
	PaymentPix        = "pix"
	PaymentCreditCard = "credit_card"
	PaymentBoleto     = "boleto"
)

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// PageOrderStats is the per-page row of the dashboard
type PageOrderStats struct {
	PageID  string          `db:"page_id" json:"page_id"`
	Title   string          `db:"title" json:"title"`
	Orders  int64           `db:"orders" json:"orders"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
}

// DashboardStats aggregates a user's pages and orders
type DashboardStats struct {
	TotalPages  int64            `db:"total_pages" json:"total_pages"`
	ActivePages int64            `db:"active_pages" json:"active_pages"`
	TotalOrders int64            `db:"total_orders" json:"total_orders"`
	PaidOrders  int64            `db:"paid_orders" json:"paid_orders"`
	Revenue     decimal.Decimal  `db:"revenue" json:"revenue"`
	Pages       []PageOrderStats `json:"pages"`
}
