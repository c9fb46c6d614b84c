package handlers

import (
	"mobilestore/internal/api"
	"mobilestore/internal/config"
	"mobilestore/internal/debounce"
	"mobilestore/internal/services"
	"mobilestore/internal/session"
)

type Deps struct {
	AuthHandler         *AuthHandler
	CatalogHandler      *CatalogHandler
	ProductHandler      *ProductHandler
	SearchHandler       *SearchHandler
	ContactHandler      *ContactHandler
	AdminHandler        *AdminHandler
	AdminProductHandler *AdminProductHandler
	CategoryHandler     *TaxonomyHandler
	BrandHandler        *TaxonomyHandler
}

// NewDeps wires the public handlers to the anonymous client. Admin handlers
// take their client from the request's session.
func NewDeps(cfg config.Config, client *api.Client, reg *session.Registry) *Deps {
	catalogSvc := services.NewCatalogService(client, cfg.PageSize)
	searchSvc := services.NewSearchService(client, debounce.NewGroup(cfg.SearchDebounce), cfg.PageSize)
	feedbackSvc := services.NewFeedbackService(client)

	return &Deps{
		AuthHandler:         &AuthHandler{Sessions: reg},
		CatalogHandler:      &CatalogHandler{Catalog: catalogSvc},
		ProductHandler:      &ProductHandler{Catalog: catalogSvc},
		SearchHandler:       &SearchHandler{Search: searchSvc},
		ContactHandler:      &ContactHandler{Feedback: feedbackSvc},
		AdminHandler:        &AdminHandler{},
		AdminProductHandler: &AdminProductHandler{PageSize: cfg.AdminPageSize},
		CategoryHandler:     &TaxonomyHandler{Kind: "categories"},
		BrandHandler:        &TaxonomyHandler{Kind: "brands"},
	}
}
