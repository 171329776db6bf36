package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// listStores handles GET /api/stores: active stores for the store locator.
func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.ListActive(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, s := range stores {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
				e.Field("name", func(e *jx.Encoder) { e.StrEscape(s.Name) })
				e.Field("addressLine1", func(e *jx.Encoder) { e.StrEscape(s.AddressLine1) })
				e.Field("city", func(e *jx.Encoder) { e.StrEscape(s.City) })
				e.Field("state", func(e *jx.Encoder) { e.StrEscape(s.State) })
				e.Field("postalCode", func(e *jx.Encoder) { e.Str(s.PostalCode) })
				e.Field("country", func(e *jx.Encoder) { e.StrEscape(s.Country) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(s.Phone) })
				if s.Email != "" {
					e.Field("email", func(e *jx.Encoder) { e.Str(s.Email) })
				}
				e.Field("openingHours", func(e *jx.Encoder) {
					e.Obj(func(e *jx.Encoder) {
						for day, hours := range s.OpeningHours {
							e.Field(day, func(e *jx.Encoder) { e.StrEscape(hours) })
						}
					})
				})
				e.Field("latitude", func(e *jx.Encoder) { e.Float64(s.Latitude) })
				e.Field("longitude", func(e *jx.Encoder) { e.Float64(s.Longitude) })
			})
		}
	})
	writeJSON(w, http.StatusOK, &e)
}
