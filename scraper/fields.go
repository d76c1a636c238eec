package scraper

import (
	"context"

	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
)

// ExtractFields reads price, priceOld, rating and reviewCount. Each field
// has its own bounded wait; a missing field never blocks the others.
func (x *Extractor) ExtractFields(ctx context.Context, page browser.Page) models.PartialRecord {
	rec := models.NewPartialRecord()

	x.extractPrices(ctx, page, &rec)

	if text, ok := x.readText(ctx, page, x.sel.rating); ok {
		if v, ok := NormalizeRating(text); ok {
			rec.Set(models.FieldRating, v)
		}
	}
	if text, ok := x.readText(ctx, page, x.sel.reviews); ok {
		if v, ok := NormalizeReviewCount(text); ok {
			rec.Set(models.FieldReviewCount, v)
		}
	}

	for _, f := range models.FieldOrder {
		_, present := rec.Get(f)
		x.metrics.IncField(string(f), present)
		if !present {
			x.logger.Info("field absent", "field", f)
		}
	}
	return rec
}

func (x *Extractor) extractPrices(ctx context.Context, page browser.Page, rec *models.PartialRecord) {
	if _, ok := Locate(ctx, page, x.sel.priceContainer, x.timing.Selector); !ok {
		x.logger.Info("could not find price container")
		return
	}

	nodes := LocateAll(ctx, page, x.sel.priceInContainer, x.timing.Action)
	if len(nodes) == 0 {
		x.logger.Info("price container holds no price nodes")
		return
	}

	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		actx, cancel := x.action(ctx)
		text, err := n.Text(actx)
		cancel()
		if err != nil {
			x.logger.Debug("could not read price node", "error", err)
			continue
		}
		texts = append(texts, text)
	}

	current, prior := InterpretPrices(PriceTexts(texts, x.currency))
	if current != "" {
		rec.Set(models.FieldPrice, NormalizePrice(current))
	}
	if prior != "" {
		rec.Set(models.FieldPriceOld, NormalizePrice(prior))
	}
}

// readText waits for spec and returns the text of its first match.
func (x *Extractor) readText(ctx context.Context, page browser.Page, spec models.SelectorSpec) (string, bool) {
	el, ok := Locate(ctx, page, spec, x.timing.Selector)
	if !ok {
		x.logger.Info("could not find element", "target", spec.Name)
		return "", false
	}
	actx, cancel := x.action(ctx)
	defer cancel()
	text, err := el.Text(actx)
	if err != nil {
		x.logger.Info("could not read element text", "target", spec.Name, "error", err)
		return "", false
	}
	return text, true
}
