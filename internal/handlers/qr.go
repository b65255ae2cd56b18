package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/grvc/ambassadors/internal/store"
)

// GET /qr/{code}.png
// The image encodes the confirmation URL for the code. baseURL falls back to
// the request host when empty.
func QR(st store.Store, baseURL string) http.HandlerFunc {
	baseURL = strings.TrimRight(baseURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
		if code == "" || st == nil {
			http.NotFound(w, r)
			return
		}
		// ensure code exists
		if _, err := st.ByCode(r.Context(), code); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				http.Error(w, "failed to load registration", http.StatusInternalServerError)
				return
			}
			http.NotFound(w, r)
			return
		}

		base := baseURL
		if base == "" {
			base = "http://" + r.Host
		}
		target := base + "/confirmation?code=" + url.QueryEscape(code)

		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
