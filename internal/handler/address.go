package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// listAddresses handles GET /api/addresses: the caller's shipping addresses,
// default first.
func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	addrs, err := h.addresses.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, a := range addrs {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
				e.Field("fullName", func(e *jx.Encoder) { e.StrEscape(a.FullName) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
				e.Field("addressLine1", func(e *jx.Encoder) { e.StrEscape(a.AddressLine1) })
				if a.AddressLine2 != "" {
					e.Field("addressLine2", func(e *jx.Encoder) { e.StrEscape(a.AddressLine2) })
				}
				e.Field("city", func(e *jx.Encoder) { e.StrEscape(a.City) })
				e.Field("state", func(e *jx.Encoder) { e.StrEscape(a.State) })
				e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
				e.Field("country", func(e *jx.Encoder) { e.StrEscape(a.Country) })
				e.Field("isDefault", func(e *jx.Encoder) { e.Bool(a.Default) })
			})
		}
	})
	writeJSON(w, http.StatusOK, &e)
}
