package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/shelfprobe/models"
)

func record(kv map[models.Field]string) models.PartialRecord {
	rec := models.NewPartialRecord()
	for f, v := range kv {
		rec.Set(f, v)
	}
	return rec
}

func TestFormatRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  models.PartialRecord
		want string
	}{
		{
			name: "all fields in fixed order",
			rec: record(map[models.Field]string{
				models.FieldReviewCount: "12",
				models.FieldRating:      "4.5",
				models.FieldPriceOld:    "1234",
				models.FieldPrice:       "999",
			}),
			want: "price=999\npriceOld=1234\nrating=4.5\nreviewCount=12",
		},
		{
			name: "absent fields have no line",
			rec:  record(map[models.Field]string{models.FieldPrice: "89,90", models.FieldReviewCount: "3"}),
			want: "price=89,90\nreviewCount=3",
		},
		{
			name: "empty record",
			rec:  models.NewPartialRecord(),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRecord(tt.rec))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestFormatCatalog(t *testing.T) {
	entries := []models.CatalogEntry{
		{
			Name:        "Tomatoes",
			URL:         "https://www.vprok.ru/product/tomatoes--1",
			Rating:      ptr(4.8),
			ReviewCount: ptr(120),
			Price:       89.9,
			PriorPrice:  ptr(129.9),
			Discount:    &models.Discount{Value: 31, Percent: true},
		},
		{
			Name:     "Cucumbers",
			URL:      "https://www.vprok.ru/product/cucumbers--2",
			Price:    100,
			Discount: &models.Discount{Value: 5},
		},
	}

	want := "Product Name: Tomatoes\n" +
		"Product URL: https://www.vprok.ru/product/tomatoes--1\n" +
		"Rating: 4.8\n" +
		"Number of reviews: 120\n" +
		"Discount price: 89.9\n" +
		"Price before discount: 129.9\n" +
		"Discount size: 31%\n" +
		"---\n" +
		"Product Name: Cucumbers\n" +
		"Product URL: https://www.vprok.ru/product/cucumbers--2\n" +
		"Price: 100\n" +
		"Discount size: 5\n" +
		"---"
	assert.Equal(t, want, FormatCatalog(entries))
	assert.Equal(t, "", FormatCatalog(nil))
}
