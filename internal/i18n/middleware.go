package i18n

import "net/http"

// Middleware injects a localizer into every request context. A "lang" query
// parameter wins over Accept-Language; fallback is the default language.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.URL.Query().Get("lang")
			if lang == "" {
				lang = Match(r.Header.Get("Accept-Language"))
			}
			w.Header().Set("Content-Language", lang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang, fallback))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
