package api

import (
	"net/url"
	"strconv"
)

// String, Int, Float and Bool return pointers for optional parameters. A nil
// field is left out of the query string; a set field is always sent, even
// when it holds the zero value.
func String(v string) *string  { return &v }
func Int(v int) *int           { return &v }
func Float(v float64) *float64 { return &v }
func Bool(v bool) *bool        { return &v }

// query accumulates parameters in insertion order.
type query struct {
	keys []string
	vals url.Values
}

func newQuery() *query { return &query{vals: url.Values{}} }

func (q *query) add(key, value string) {
	if _, ok := q.vals[key]; !ok {
		q.keys = append(q.keys, key)
	}
	q.vals.Set(key, value)
}

func (q *query) str(key string, v *string) *query {
	if v != nil {
		q.add(key, *v)
	}
	return q
}

func (q *query) num(key string, v *int) *query {
	if v != nil {
		q.add(key, strconv.Itoa(*v))
	}
	return q
}

func (q *query) float(key string, v *float64) *query {
	if v != nil {
		q.add(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
	return q
}

func (q *query) flag(key string, v *bool) *query {
	if v != nil {
		q.add(key, strconv.FormatBool(*v))
	}
	return q
}

// encode renders "?a=1&b=2" or "" when nothing was set.
func (q *query) encode() string {
	if len(q.keys) == 0 {
		return ""
	}
	out := make([]byte, 0, 64)
	out = append(out, '?')
	for i, k := range q.keys {
		if i > 0 {
			out = append(out, '&')
		}
		out = append(out, url.QueryEscape(k)...)
		out = append(out, '=')
		out = append(out, url.QueryEscape(q.vals.Get(k))...)
	}
	return string(out)
}

// PageParams is the paging/sorting subset shared by several list endpoints.
type PageParams struct {
	Page      *int
	Limit     *int
	SortBy    *string
	SortOrder *string
}

func (p PageParams) Encode() string {
	return newQuery().
		num("page", p.Page).
		num("limit", p.Limit).
		str("sort_by", p.SortBy).
		str("sort_order", p.SortOrder).
		encode()
}

// ProductListParams are the /products filters.
type ProductListParams struct {
	Page         *int
	Limit        *int
	SortBy       *string
	SortOrder    *string
	BrandID      *string
	CategoryID   *string
	Status       *string
	IsFeatured   *bool
	IsBestseller *bool
	InStock      *bool
}

func (p ProductListParams) Encode() string {
	return newQuery().
		num("page", p.Page).
		num("limit", p.Limit).
		str("sort_by", p.SortBy).
		str("sort_order", p.SortOrder).
		str("brand_id", p.BrandID).
		str("category_id", p.CategoryID).
		str("status", p.Status).
		flag("is_featured", p.IsFeatured).
		flag("is_bestseller", p.IsBestseller).
		flag("in_stock", p.InStock).
		encode()
}

// SearchParams are the /products/search parameters. The admin product list
// also forwards its page and id filters through here.
type SearchParams struct {
	Query      *string
	Brand      *string
	Category   *string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	SortBy     *string // relevance | price | name | rating | date
	SortOrder  *string
	Limit      *int
	Offset     *int
	Page       *int
	BrandID    *string
	CategoryID *string
	Status     *string
}

func (p SearchParams) Encode() string {
	return newQuery().
		str("query", p.Query).
		str("brand", p.Brand).
		str("category", p.Category).
		float("min_price", p.MinPrice).
		float("max_price", p.MaxPrice).
		flag("in_stock", p.InStock).
		str("sort_by", p.SortBy).
		str("sort_order", p.SortOrder).
		num("limit", p.Limit).
		num("offset", p.Offset).
		num("page", p.Page).
		str("brand_id", p.BrandID).
		str("category_id", p.CategoryID).
		str("status", p.Status).
		encode()
}
