package main

import (
	"html/template"
	"net/http"
	"strings"
)

// indexTemplate is the minimal study form. It posts back to /ask and renders
// the structured result inline.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>examaid</title>
  <style>
    body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
    textarea { width: 100%; height: 5rem; }
    .answer { background: #f5f5f5; padding: 1rem; border-radius: 6px; white-space: pre-wrap; }
    .source { color: #555; font-size: 0.9rem; }
    img { max-width: 320px; display: block; margin: 0.5rem 0; }
  </style>
</head>
<body>
  <h1>examaid</h1>
  <form method="post" action="/ask">
    <textarea name="question" placeholder="Ask a chemistry question...">{{.Question}}</textarea>
    <input type="hidden" name="session_id" value="{{.SessionID}}">
    <p><button type="submit">Ask</button></p>
  </form>
  {{if .Answer}}
  <h2>Answer</h2>
  <div class="answer">{{.Answer}}</div>
  {{range .Images}}
  <img src="{{.ImageURL}}" alt="{{.Compound}}">
  {{end}}
  {{if .Sources}}
  <h3>Sources</h3>
  <ul>
    {{range .Sources}}<li class="source">{{.Compound}} (score {{.Score}})</li>{{end}}
  </ul>
  {{end}}
  {{end}}
</body>
</html>
`))

type pageData struct {
	Question  string
	SessionID string
	Answer    string
	Sources   []pageSource
	Images    []pageImage
}

type pageSource struct {
	Compound string
	Score    float64
}

type pageImage struct {
	Compound string
	ImageURL string
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, pageData{})
}

func (s *server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		s.renderPage(w, pageData{})
		return
	}

	resp, err := s.ask(r.Context(), AskRequest{
		Question:  question,
		SessionID: r.FormValue("session_id"),
	})
	if err != nil {
		http.Error(w, "could not answer question", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Question:  question,
		SessionID: resp.SessionID,
		Answer:    resp.Answer,
	}
	for _, src := range resp.Sources {
		data.Sources = append(data.Sources, pageSource{Compound: src.Compound, Score: src.Score})
	}
	for _, img := range resp.Images {
		data.Images = append(data.Images, pageImage{Compound: img.Compound, ImageURL: img.ImageURL})
	}
	s.renderPage(w, data)
}

func (s *server) renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page failed", "err", err)
	}
}
