package services

import (
	"context"
	"strconv"
	"strings"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/validate"
)

// TaxonomyForm is the shared category/brand form. ImageURL is the category
// image or the brand logo.
type TaxonomyForm struct {
	Name        string
	Slug        string
	Description string
	ImageURL    string
	WebsiteURL  string
	IsActive    bool
	SortOrder   string
}

type taxonomyFields struct {
	name, slug, description, image, website string
	active                                  bool
	order                                   int
}

func (f TaxonomyForm) check() (taxonomyFields, error) {
	errs := FieldErrors{}
	out := taxonomyFields{description: strings.TrimSpace(f.Description), active: f.IsActive}
	var ok bool
	if out.name, ok = validate.Name(f.Name, 100); !ok {
		errs["name"] = "Name is required"
	}
	if out.slug, ok = validate.Slug(f.Slug); !ok {
		errs["slug"] = "Slug may only contain lowercase letters, digits and dashes"
	}
	if s := strings.TrimSpace(f.ImageURL); s != "" {
		if out.image, ok = validate.URL(s); !ok {
			errs["image_url"] = "Enter a valid URL"
		}
	}
	if s := strings.TrimSpace(f.WebsiteURL); s != "" {
		if out.website, ok = validate.URL(s); !ok {
			errs["website_url"] = "Enter a valid URL"
		}
	}
	if s := strings.TrimSpace(f.SortOrder); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			errs["sort_order"] = "Sort order must be a whole number"
		}
		out.order = n
	}
	return out, errs.orNil()
}

func (f TaxonomyForm) CategoryInput() (domain.CategoryInput, error) {
	v, err := f.check()
	return domain.CategoryInput{
		Name: v.name, Slug: v.slug, Description: v.description, ImageURL: v.image,
		IsActive: v.active, SortOrder: v.order,
	}, err
}

func (f TaxonomyForm) BrandInput() (domain.BrandInput, error) {
	v, err := f.check()
	return domain.BrandInput{
		Name: v.name, Slug: v.slug, Description: v.description, LogoURL: v.image, WebsiteURL: v.website,
		IsActive: v.active, SortOrder: v.order,
	}, err
}

func CategoryForm(c domain.Category) TaxonomyForm {
	return TaxonomyForm{Name: c.Name, Slug: c.Slug, Description: c.Description, ImageURL: c.ImageURL,
		IsActive: c.IsActive, SortOrder: strconv.Itoa(c.SortOrder)}
}

func BrandForm(b domain.Brand) TaxonomyForm {
	return TaxonomyForm{Name: b.Name, Slug: b.Slug, Description: b.Description, ImageURL: b.LogoURL,
		WebsiteURL: b.WebsiteURL, IsActive: b.IsActive, SortOrder: strconv.Itoa(b.SortOrder)}
}

type TaxonomyService struct {
	API *api.Client
}

func NewTaxonomyService(client *api.Client) *TaxonomyService {
	return &TaxonomyService{API: client}
}

func (s *TaxonomyService) Category(ctx context.Context, id string) (domain.Category, error) {
	return api.Data(s.API.Category(ctx, id))
}

func (s *TaxonomyService) SaveCategory(ctx context.Context, id string, f TaxonomyForm) (domain.Category, error) {
	in, err := f.CategoryInput()
	if err != nil {
		return domain.Category{}, err
	}
	if id == "" {
		return api.Data(s.API.CreateCategory(ctx, in))
	}
	return api.Data(s.API.UpdateCategory(ctx, id, in))
}

func (s *TaxonomyService) DeleteCategory(ctx context.Context, id string) error {
	_, err := api.Data(s.API.DeleteCategory(ctx, id))
	return err
}

func (s *TaxonomyService) Brand(ctx context.Context, id string) (domain.Brand, error) {
	return api.Data(s.API.Brand(ctx, id))
}

func (s *TaxonomyService) SaveBrand(ctx context.Context, id string, f TaxonomyForm) (domain.Brand, error) {
	in, err := f.BrandInput()
	if err != nil {
		return domain.Brand{}, err
	}
	if id == "" {
		return api.Data(s.API.CreateBrand(ctx, in))
	}
	return api.Data(s.API.UpdateBrand(ctx, id, in))
}

func (s *TaxonomyService) DeleteBrand(ctx context.Context, id string) error {
	_, err := api.Data(s.API.DeleteBrand(ctx, id))
	return err
}
