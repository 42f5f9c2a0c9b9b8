package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/nijaru/yt-tutor/middleware"
)

const PageTitle = "AI Powered Tutor (No Embeddings)"

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title         string
	VideoURL      string
	Characters    int
	Status        string
	Error         string
	HasTranscript bool
	Question      string
	Answer        string
}

func newPageData(videoURL string, hasTranscript bool) pageData {
	return pageData{
		Title:         PageTitle,
		VideoURL:      videoURL,
		HasTranscript: hasTranscript,
	}
}

func renderPage(w http.ResponseWriter, r *http.Request, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTemplate.Execute(w, data); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to render page")
	}
}
