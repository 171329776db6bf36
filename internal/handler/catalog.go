package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/threadline/storefront-api/internal/domain/catalog"
)

// listProducts handles GET /api/products: active products with variants and
// images.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range products {
			encodeProduct(e, &products[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// getProduct handles GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "product not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("title", func(e *jx.Encoder) { e.StrEscape(p.Title) })
		e.Field("description", func(e *jx.Encoder) { e.StrEscape(p.Description) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Variants {
					encodeVariant(e, &p.Variants[i])
				}
			})
		})
		e.Field("images", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, img := range p.Images {
					e.Obj(func(e *jx.Encoder) {
						e.Field("url", func(e *jx.Encoder) { e.Str(img.URL) })
						e.Field("primary", func(e *jx.Encoder) { e.Bool(img.Primary) })
					})
				}
			})
		})
	})
}

func encodeVariant(e *jx.Encoder, v *catalog.Variant) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
		e.Field("sku", func(e *jx.Encoder) { e.Str(v.SKU) })
		e.Field("color", func(e *jx.Encoder) { e.StrEscape(v.Color) })
		e.Field("size", func(e *jx.Encoder) { e.Str(v.Size) })
		e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(v.Price.StringFixed(2))) })
		e.Field("stockQuantity", func(e *jx.Encoder) { e.Int(v.StockQuantity) })
	})
}
