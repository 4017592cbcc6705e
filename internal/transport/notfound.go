package transport

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/404.html
var templateFS embed.FS

var notFoundPage = template.Must(template.ParseFS(templateFS, "templates/404.html"))

// NotFoundHandler renders the HTML page served for unmatched routes.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if err := notFoundPage.Execute(w, struct{ Path string }{r.URL.Path}); err != nil {
			logger.Warn("Failed to render not found page", zap.Error(err))
		}
	}
}
