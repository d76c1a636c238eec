package models

import "strconv"

// Discount is the markdown presented for a catalog entry. Percent discounts
// render as "<v>%", absolute discounts as the bare amount.
type Discount struct {
	Value   float64 `json:"value"`
	Percent bool    `json:"percent"`
}

func (d Discount) String() string {
	s := FormatNumber(d.Value)
	if d.Percent {
		return s + "%"
	}
	return s
}

// CatalogEntry is one normalised product from a catalog payload.
type CatalogEntry struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"review_count,omitempty"`
	Price       float64   `json:"price"`
	PriorPrice  *float64  `json:"prior_price,omitempty"`
	Discount    *Discount `json:"discount,omitempty"`
}

// FormatNumber renders a float the shortest way that round-trips, so 100
// prints as "100" and 89.9 as "89.9".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
