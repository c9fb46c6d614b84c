package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type ProductStatus string

const (
	StatusActive     ProductStatus = "active"
	StatusInactive   ProductStatus = "inactive"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

// Valid reports whether s is one of the statuses the backend accepts.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOutOfStock:
		return true
	}
	return false
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type Brand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Product mirrors the backend record. Discount, stock and display fields are
// computed by the server and only rendered here.
type Product struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Slug               string        `json:"slug"`
	ShortDescription   string        `json:"short_description,omitempty"`
	Description        string        `json:"description,omitempty"`
	Brand              *Brand        `json:"brand,omitempty"`
	Category           *Category     `json:"category,omitempty"`
	Price              float64       `json:"price"`
	OriginalPrice      *float64      `json:"original_price,omitempty"`
	DiscountPercentage float64       `json:"discount_percentage"`
	Model              string        `json:"model,omitempty"`
	SKU                string        `json:"sku,omitempty"`
	StockQuantity      int           `json:"stock_quantity"`
	Specifications     Specs         `json:"specifications,omitempty"`
	Images             []string      `json:"images"`
	FeaturedImage      string        `json:"featured_image,omitempty"`
	Status             ProductStatus `json:"status"`
	IsFeatured         bool          `json:"is_featured"`
	IsBestseller       bool          `json:"is_bestseller"`
	IsNew              bool          `json:"is_new"`
	AverageRating      float64       `json:"average_rating"`
	TotalReviews       int           `json:"total_reviews"`
	InStock            bool          `json:"in_stock"`
	StockStatus        string        `json:"stock_status"`
	PriceDisplay       string        `json:"price_display"`
	DiscountAmount     float64       `json:"discount_amount"`
	CreatedAt          string        `json:"created_at,omitempty"`
	UpdatedAt          string        `json:"updated_at,omitempty"`
}

// BrandName returns the brand label or a placeholder when the product has none.
func (p Product) BrandName() string {
	if p.Brand == nil || p.Brand.Name == "" {
		return "Unbranded"
	}
	return p.Brand.Name
}

// CategoryName returns the category label or a placeholder.
func (p Product) CategoryName() string {
	if p.Category == nil || p.Category.Name == "" {
		return "Uncategorized"
	}
	return p.Category.Name
}

func (p Product) BrandID() string {
	if p.Brand == nil {
		return ""
	}
	return p.Brand.ID
}

func (p Product) CategoryID() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.ID
}

// Cover is the image shown on product cards.
func (p Product) Cover() string {
	if p.FeaturedImage != "" {
		return p.FeaturedImage
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return "/static/placeholder.svg"
}

// Specs is the open-ended specification map. The backend has been seen to
// deliver it either as an object or as a JSON-encoded string; both decode.
type Specs map[string]string

func (s *Specs) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" || trimmed == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			*s = nil
			return nil
		}
		b = []byte(inner)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("specifications: %w", err)
	}
	out := make(Specs, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	*s = out
	return nil
}

// Keys returns the specification keys in a stable order for rendering.
func (s Specs) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProductInput is the create/update body. Brand and category travel as ids only.
type ProductInput struct {
	Name             string            `json:"name"`
	Price            float64           `json:"price"`
	OriginalPrice    *float64          `json:"original_price,omitempty"`
	StockQuantity    int               `json:"stock_quantity"`
	ShortDescription string            `json:"short_description"`
	Description      string            `json:"description"`
	Model            string            `json:"model"`
	SKU              *string           `json:"sku,omitempty"`
	BrandID          *string           `json:"brand_id,omitempty"`
	CategoryID       *string           `json:"category_id,omitempty"`
	Status           ProductStatus     `json:"status,omitempty"`
	IsFeatured       bool              `json:"is_featured"`
	IsBestseller     bool              `json:"is_bestseller"`
	IsNew            bool              `json:"is_new"`
	Images           []string          `json:"images"`
	Specifications   map[string]string `json:"specifications"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

type BrandInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

type Feedback struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type FeedbackInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type PriceRange struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"`
}

type SearchFilters struct {
	Categories  []Category   `json:"categories"`
	Brands      []Brand      `json:"brands"`
	PriceRanges []PriceRange `json:"priceRanges"`
}

type PopularSearch struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type CacheStats struct {
	TotalEntries   int `json:"totalEntries"`
	ActiveEntries  int `json:"activeEntries"`
	ExpiredEntries int `json:"expiredEntries"`
}

// DashboardStats is a passthrough of the backend's dashboard payload.
type DashboardStats struct {
	TotalProducts   int             `json:"total_products"`
	TotalCategories int             `json:"total_categories"`
	TotalBrands     int             `json:"total_brands"`
	CacheStats      CacheStats      `json:"cache_stats"`
	PopularSearches []PopularSearch `json:"popular_searches"`
}
