package services

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/validate"
)

// ProductForm is the raw create/edit form. Spec rows arrive as parallel
// key/value lists.
type ProductForm struct {
	Name             string
	Price            string
	OriginalPrice    string
	StockQuantity    string
	ShortDescription string
	Description      string
	Model            string
	SKU              string
	BrandID          string
	CategoryID       string
	Status           string
	IsFeatured       bool
	IsBestseller     bool
	IsNew            bool
	Images           []string
	SpecKeys         []string
	SpecValues       []string
}

// SpecRow is one key/value line of the form.
type SpecRow struct{ Key, Value string }

func (f ProductForm) SpecRows() []SpecRow {
	rows := make([]SpecRow, 0, len(f.SpecKeys))
	for i, k := range f.SpecKeys {
		v := ""
		if i < len(f.SpecValues) {
			v = f.SpecValues[i]
		}
		rows = append(rows, SpecRow{Key: k, Value: v})
	}
	return rows
}

// FormFromProduct pre-fills the edit form.
func FormFromProduct(p domain.Product) ProductForm {
	f := ProductForm{
		Name:             p.Name,
		Price:            strconv.FormatFloat(p.Price, 'f', -1, 64),
		StockQuantity:    strconv.Itoa(p.StockQuantity),
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Model:            p.Model,
		SKU:              p.SKU,
		BrandID:          p.BrandID(),
		CategoryID:       p.CategoryID(),
		Status:           string(p.Status),
		IsFeatured:       p.IsFeatured,
		IsBestseller:     p.IsBestseller,
		IsNew:            p.IsNew,
		Images:           append([]string(nil), p.Images...),
	}
	if p.OriginalPrice != nil {
		f.OriginalPrice = strconv.FormatFloat(*p.OriginalPrice, 'f', -1, 64)
	}
	for _, k := range p.Specifications.Keys() {
		f.SpecKeys = append(f.SpecKeys, k)
		f.SpecValues = append(f.SpecValues, p.Specifications[k])
	}
	return f
}

// ToInput validates the form and builds the request body. Blank image
// lines and spec rows with a blank key are dropped.
func (f ProductForm) ToInput() (domain.ProductInput, error) {
	errs := FieldErrors{}
	in := domain.ProductInput{
		ShortDescription: strings.TrimSpace(f.ShortDescription),
		Description:      strings.TrimSpace(f.Description),
		Model:            strings.TrimSpace(f.Model),
		StockQuantity:    validate.Quantity(f.StockQuantity),
		IsFeatured:       f.IsFeatured,
		IsBestseller:     f.IsBestseller,
		IsNew:            f.IsNew,
		Images:           []string{},
		Specifications:   map[string]string{},
	}
	var ok bool
	if in.Name, ok = validate.Name(f.Name, 200); !ok {
		errs["name"] = "Product name is required"
	}
	if in.Price, ok = validate.Price(f.Price); !ok {
		errs["price"] = "Valid price is required"
	}
	if in.OriginalPrice, ok = validate.OptionalPrice(f.OriginalPrice); !ok {
		errs["original_price"] = "Original price must be a number"
	}
	if sku := strings.TrimSpace(f.SKU); sku != "" {
		in.SKU = &sku
	}
	if id, ok := validate.OptionalID(f.BrandID); !ok {
		errs["brand_id"] = "Unknown brand"
	} else if id != "" {
		in.BrandID = &id
	}
	if id, ok := validate.OptionalID(f.CategoryID); !ok {
		errs["category_id"] = "Unknown category"
	} else if id != "" {
		in.CategoryID = &id
	}
	in.Status = domain.StatusActive
	if strings.TrimSpace(f.Status) != "" {
		if in.Status, ok = validate.Status(f.Status); !ok {
			errs["status"] = "Unknown status"
		}
	}
	for _, img := range f.Images {
		if strings.TrimSpace(img) == "" {
			continue
		}
		u, ok := validate.URL(img)
		if !ok {
			errs["images"] = "Image URLs must be http(s) links"
			continue
		}
		in.Images = append(in.Images, u)
	}
	for _, row := range f.SpecRows() {
		if k := strings.TrimSpace(row.Key); k != "" {
			in.Specifications[k] = strings.TrimSpace(row.Value)
		}
	}
	return in, errs.orNil()
}

type AdminProductQuery struct {
	Page       int
	Limit      int
	Q          string
	BrandID    string
	CategoryID string
	Status     string
}

type ProductAdminService struct {
	API *api.Client
}

func NewProductAdminService(client *api.Client) *ProductAdminService {
	return &ProductAdminService{API: client}
}

// List pages through products. A text query goes through the search
// endpoint; the id and status filters apply either way.
func (s *ProductAdminService) List(ctx context.Context, q AdminProductQuery) ([]domain.Product, *api.Pagination, error) {
	page, limit := api.Int(max(q.Page, 1)), api.Int(q.Limit)
	if q.Limit <= 0 {
		limit = api.Int(20)
	}
	opt := func(v string) *string {
		if v == "" {
			return nil
		}
		return api.String(v)
	}
	var (
		env *api.Envelope[[]domain.Product]
		err error
	)
	if strings.TrimSpace(q.Q) != "" {
		env, err = s.API.SearchProducts(ctx, api.SearchParams{
			Query: api.String(strings.TrimSpace(q.Q)), Page: page, Limit: limit,
			BrandID: opt(q.BrandID), CategoryID: opt(q.CategoryID), Status: opt(q.Status),
		})
	} else {
		env, err = s.API.ListProducts(ctx, api.ProductListParams{
			Page: page, Limit: limit,
			BrandID: opt(q.BrandID), CategoryID: opt(q.CategoryID), Status: opt(q.Status),
		})
	}
	list, err := api.Data(env, err)
	if err != nil {
		return nil, nil, err
	}
	return list, env.Pagination, nil
}

// FormOptions loads the brand and category pickers together.
func (s *ProductAdminService) FormOptions(ctx context.Context) ([]domain.Brand, []domain.Category, error) {
	var (
		brands []domain.Brand
		cats   []domain.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		brands, err = api.Data(s.API.Brands(gctx))
		return err
	})
	g.Go(func() (err error) {
		cats, err = api.Data(s.API.Categories(gctx))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return brands, cats, nil
}

// Edit loads a product with the pickers for its edit form.
func (s *ProductAdminService) Edit(ctx context.Context, id string) (domain.Product, []domain.Brand, []domain.Category, error) {
	var (
		p      domain.Product
		brands []domain.Brand
		cats   []domain.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = api.Data(s.API.Product(gctx, id))
		return err
	})
	g.Go(func() (err error) {
		brands, cats, err = s.FormOptions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Product{}, nil, nil, err
	}
	return p, brands, cats, nil
}

func (s *ProductAdminService) Create(ctx context.Context, f ProductForm) (domain.Product, error) {
	in, err := f.ToInput()
	if err != nil {
		return domain.Product{}, err
	}
	return api.Data(s.API.CreateProduct(ctx, in))
}

func (s *ProductAdminService) Update(ctx context.Context, id string, f ProductForm) (domain.Product, error) {
	in, err := f.ToInput()
	if err != nil {
		return domain.Product{}, err
	}
	return api.Data(s.API.UpdateProduct(ctx, id, in))
}

func (s *ProductAdminService) Delete(ctx context.Context, id string) error {
	_, err := api.Data(s.API.DeleteProduct(ctx, id))
	return err
}

func (s *ProductAdminService) UpdateStock(ctx context.Context, id, qty string) (domain.Product, error) {
	n, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil || n < 0 || n > validate.MaxQuantity {
		return domain.Product{}, FieldErrors{"stock_quantity": "Stock must be a whole number of zero or more"}
	}
	return api.Data(s.API.UpdateProductStock(ctx, id, n))
}
