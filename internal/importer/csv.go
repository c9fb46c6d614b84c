// Package importer maps product CSV files onto create calls.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
	"mobilestore/internal/validate"
)

// Columns is the header of the example file. Only name and price are
// required in an uploaded file; other columns may be missing.
var Columns = []string{
	"name", "price", "original_price", "stock_quantity", "short_description", "description",
	"model", "sku", "brand_id", "category_id", "status", "is_featured", "is_bestseller", "is_new",
	"images", "specifications",
}

const MaxRows = 5000

var (
	ErrMissingColumns = errors.New("csv must have name and price columns")
	ErrTooManyRows    = fmt.Errorf("csv has more than %d rows", MaxRows)
)

// Creator is the part of the API client an import needs.
type Creator interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (*api.Envelope[domain.Product], error)
}

type RowError struct {
	Line int
	Name string
	Err  string
}

type Result struct {
	Success int
	Failed  int
	Errors  []RowError
}

func (r Result) Total() int { return r.Success + r.Failed }

// ParseImages splits a ';' separated list, dropping blanks.
func ParseImages(s string) []string {
	out := []string{}
	for _, img := range strings.Split(s, ";") {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

// ParseSpecs reads "key:value;key:value". Values keep any further colons;
// pairs with a blank key are dropped.
func ParseSpecs(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ";") {
		key, value, _ := strings.Cut(pair, ":")
		if key = strings.TrimSpace(key); key != "" {
			out[key] = strings.TrimSpace(value)
		}
	}
	return out
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// RowToInput maps one record, keyed by header name, to a create body.
func RowToInput(row map[string]string) (domain.ProductInput, error) {
	get := func(k string) string { return strings.TrimSpace(row[k]) }

	in := domain.ProductInput{
		Name:             get("name"),
		StockQuantity:    validate.Quantity(get("stock_quantity")),
		ShortDescription: get("short_description"),
		Description:      get("description"),
		Model:            get("model"),
		SKU:              optional(get("sku")),
		BrandID:          optional(get("brand_id")),
		CategoryID:       optional(get("category_id")),
		IsFeatured:       get("is_featured") == "true",
		IsBestseller:     get("is_bestseller") == "true",
		IsNew:            get("is_new") == "true",
		Images:           ParseImages(row["images"]),
		Specifications:   ParseSpecs(row["specifications"]),
	}
	if in.Name == "" {
		return in, errors.New("name is required")
	}
	price, ok := validate.Price(get("price"))
	if !ok {
		return in, fmt.Errorf("invalid price %q", get("price"))
	}
	in.Price = price
	orig, ok := validate.OptionalPrice(get("original_price"))
	if !ok {
		return in, fmt.Errorf("invalid original_price %q", get("original_price"))
	}
	in.OriginalPrice = orig
	if s := get("status"); s != "" {
		st, ok := validate.Status(s)
		if !ok {
			return in, fmt.Errorf("invalid status %q", s)
		}
		in.Status = st
	}
	return in, nil
}

// Importer issues one create call per CSV row, in file order.
type Importer struct {
	Client Creator
	// OnRow, if set, is called after each row with its line in the file.
	OnRow func(line int, name string, err error)
}

// Import reads the whole file and tallies the outcome. It stops early, with
// the partial tally, when the session expires or ctx is done.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, ErrMissingColumns
		}
		return res, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	if !contains(cols, "name") || !contains(cols, "price") {
		return res, ErrMissingColumns
	}

	type record struct {
		line   int
		fields []string
	}
	var records []record
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		if len(records) == MaxRows {
			return res, ErrTooManyRows
		}
		line, _ := cr.FieldPos(0)
		records = append(records, record{line: line, fields: rec})
	}

	for _, rec := range records {
		line := rec.line
		row := make(map[string]string, len(cols))
		for j, c := range cols {
			if j < len(rec.fields) {
				row[c] = rec.fields[j]
			}
		}
		err := im.createRow(ctx, row)
		if errors.Is(err, api.ErrSessionExpired) || ctx.Err() != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return res, err
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, RowError{Line: line, Name: row["name"], Err: err.Error()})
			applog.Warn(nil, "import.row.fail", err, map[string]any{"line": line})
		} else {
			res.Success++
		}
		if im.OnRow != nil {
			im.OnRow(line, row["name"], err)
		}
	}
	return res, nil
}

func (im *Importer) createRow(ctx context.Context, row map[string]string) error {
	in, err := RowToInput(row)
	if err != nil {
		return err
	}
	env, err := im.Client.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	return env.Err()
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteExample writes a header and one sample row.
func WriteExample(w io.Writer) error {
	cw := csv.NewWriter(w)
	rows := [][]string{Columns, {
		"Sample Product", "199.99", "249.99", "100", "Short desc", "Full desc",
		"SP-001", "SKU001", "", "", string(domain.StatusActive), "false", "false", "false",
		"https://img.com/1.jpg;https://img.com/2.jpg", "Color:Red;Size:M",
	}}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write example csv: %w", err)
	}
	return nil
}
