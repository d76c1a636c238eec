// Package catalog turns the JSON payload embedded in a category page into
// catalog entries.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/use-agent/shelfprobe/models"
)

// ErrMalformed wraps every payload failure. A failed payload yields no
// entries.
var ErrMalformed = errors.New("malformed catalog payload")

// ProductsPath is the key path from the payload root to the product list.
var ProductsPath = []string{"props", "pageProps", "initialStore", "catalogPage", "products"}

// product is the subset of a payload entry that is read. Missing fields and
// fields of an unexpected type are left absent.
type product struct {
	Name            string
	URL             string
	Rating          *float64
	Reviews         *int
	Price           float64
	OldPrice        *float64
	Discount        *float64
	DiscountPercent *float64
}

// Parse decodes payload and maps every product to a CatalogEntry, in
// payload order. Relative product URLs are joined to origin. Only an
// unparsable payload or a product path that does not end in a list is
// fatal; list items that are not objects are skipped.
func Parse(payload, origin string) ([]models.CatalogEntry, error) {
	var root any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the payload", ErrMalformed)
	}

	node := root
	for i, key := range ProductsPath {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an object", ErrMalformed, pathString(i))
		}
		if node, ok = obj[key]; !ok {
			return nil, fmt.Errorf("%w: %s is missing", ErrMalformed, pathString(i+1))
		}
	}
	list, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", ErrMalformed, pathString(len(ProductsPath)))
	}

	entries := make([]models.CatalogEntry, 0, len(list))
	for _, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, readProduct(obj).entry(origin))
	}
	return entries, nil
}

func readProduct(obj map[string]any) product {
	p := product{
		Name:            str(obj["name"]),
		URL:             str(obj["url"]),
		Rating:          num(obj["rating"]),
		Reviews:         integer(obj["reviews"]),
		OldPrice:        num(obj["oldPrice"]),
		Discount:        num(obj["discount"]),
		DiscountPercent: num(obj["discountPercent"]),
	}
	if v := num(obj["price"]); v != nil {
		p.Price = *v
	}
	return p
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) *float64 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

// integer accepts integral numbers written either way, so 12 and 12.0 both
// read as 12.
func integer(v any) *int {
	f := num(v)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	i := int(*f)
	return &i
}

func (p product) entry(origin string) models.CatalogEntry {
	e := models.CatalogEntry{
		Name:        p.Name,
		URL:         JoinURL(origin, p.URL),
		Rating:      p.Rating,
		ReviewCount: p.Reviews,
		Price:       p.Price,
	}
	if p.OldPrice != nil && *p.OldPrice > 0 {
		e.PriorPrice = p.OldPrice
	}
	switch {
	case p.DiscountPercent != nil && *p.DiscountPercent > 0:
		e.Discount = &models.Discount{Value: *p.DiscountPercent, Percent: true}
	case p.Discount != nil && *p.Discount > 0:
		e.Discount = &models.Discount{Value: *p.Discount}
	}
	return e
}

// JoinURL joins a site-relative path to origin with exactly one slash.
// Absolute URLs are returned unchanged.
func JoinURL(origin, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return origin
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

func pathString(n int) string {
	if n == 0 {
		return "payload root"
	}
	return strings.Join(ProductsPath[:n], ".")
}
