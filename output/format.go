// Package output renders extraction results as plain text and persists
// them.
package output

import (
	"strconv"
	"strings"

	"github.com/use-agent/shelfprobe/models"
)

// BlockSeparator terminates every catalog block.
const BlockSeparator = "---"

// FormatRecord renders present fields as key=value lines in the fixed field
// order. An empty record renders as "".
func FormatRecord(rec models.PartialRecord) string {
	var b strings.Builder
	for _, f := range models.FieldOrder {
		if v, ok := rec.Get(f); ok {
			b.WriteString(string(f))
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}

// FormatCatalog renders one block per entry, in entry order.
func FormatCatalog(entries []models.CatalogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		writeLine(&b, "Product Name", e.Name)
		writeLine(&b, "Product URL", e.URL)
		if e.Rating != nil {
			writeLine(&b, "Rating", models.FormatNumber(*e.Rating))
		}
		if e.ReviewCount != nil {
			writeLine(&b, "Number of reviews", strconv.Itoa(*e.ReviewCount))
		}
		if e.PriorPrice != nil {
			writeLine(&b, "Discount price", models.FormatNumber(e.Price))
			writeLine(&b, "Price before discount", models.FormatNumber(*e.PriorPrice))
		} else {
			writeLine(&b, "Price", models.FormatNumber(e.Price))
		}
		if e.Discount != nil {
			writeLine(&b, "Discount size", e.Discount.String())
		}
		b.WriteString(BlockSeparator)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}
