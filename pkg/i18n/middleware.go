package i18n

import "net/http"

// Middleware negotiates the response locale from Accept-Language, stores it in
// the request context for error localization and echoes it as Content-Language.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := ParseAcceptLanguage(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", locale)
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
	})
}
