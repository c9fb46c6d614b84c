package validate

import (
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"mobilestore/internal/domain"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[\p{L}\p{N} _'.+\-]{1,80}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	rePhone = regexp.MustCompile(`^[0-9 +()\-]{5,20}$`)
	reSlug  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if r := []rune(s); len(r) > 80 {
		s = string(r[:80])
	}
	return s, reQ.MatchString(s)
}

// ID validates a backend resource identifier (product/category/brand ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// OptionalID accepts an empty value or a valid ID.
func OptionalID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return ID(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len([]rune(s)) > max {
		return "", false
	}
	return s, true
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, rePhone.MatchString(s)
}

func Slug(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, reSlug.MatchString(s)
}

// Price parses a non-negative decimal amount. Money is parsed with decimal
// so inputs like "0.1" round-trip exactly to two places.
func Price(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return d.Round(2).InexactFloat64(), true
}

// OptionalPrice returns nil for an empty value.
func OptionalPrice(s string) (*float64, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	v, ok := Price(s)
	if !ok {
		return nil, false
	}
	return &v, true
}

// MaxQuantity caps stock counts.
const MaxQuantity = math.MaxInt32

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// Quantity parses a stock count; anything unparsable or negative is 0 and
// anything above MaxQuantity is MaxQuantity.
func Quantity(s string) int {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return 0
	}
	if !d.LessThan(maxQuantity) {
		return MaxQuantity
	}
	return int(d.IntPart())
}

func Status(s string) (domain.ProductStatus, bool) {
	st := domain.ProductStatus(strings.TrimSpace(strings.ToLower(s)))
	return st, st.Valid()
}

// URL accepts absolute http(s) URLs and site-relative paths.
func URL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2048 {
		return "", false
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return s, true
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return s, true
}

// Page parses a 1-based page number, defaulting to 1.
func Page(s string) int {
	n := Quantity(s)
	if n < 1 {
		return 1
	}
	if n > 10000 {
		return 10000
	}
	return n
}
