// Package web renders the HTML prediction form and chat page.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"evbot/internal/prediction"
)

//go:embed templates/*.html
var templateFS embed.FS

// FormField is one input of the prediction form.
type FormField struct {
	Key     string
	Label   string
	Kind    string
	Step    string
	Options []string
	Value   string
}

// FormPage is the data for index.html.
type FormPage struct {
	Title   string
	Fields  []FormField
	Result  string
	IsError bool
	Ready   bool
}

// ChatPage is the data for chatbot.html.
type ChatPage struct {
	Title    string
	Provider string
	Fields   []FormField
}

// Pages holds the parsed templates.
type Pages struct {
	index *template.Template
	chat  *template.Template
}

func NewPages() (*Pages, error) {
	index, err := template.ParseFS(templateFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, err
	}
	chat, err := template.ParseFS(templateFS, "templates/layout.html", "templates/chatbot.html")
	if err != nil {
		return nil, err
	}
	return &Pages{index: index, chat: chat}, nil
}

// MustPages panics if the embedded templates fail to parse.
func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic("parse templates: " + err.Error())
	}
	return p
}

func (p *Pages) RenderForm(w http.ResponseWriter, status int, data FormPage) error {
	return render(w, status, p.index, data)
}

func (p *Pages) RenderChat(w http.ResponseWriter, status int, data ChatPage) error {
	return render(w, status, p.chat, data)
}

// render executes into a buffer so a template error never leaves a half-written page.
func render(w http.ResponseWriter, status int, t *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Fields builds the form inputs in schema order. Categorical columns become selects when
// options are known; values pre-fill the inputs after a submission.
func Fields(options map[string][]string, values map[string]string) []FormField {
	specs := prediction.Schema()
	fields := make([]FormField, 0, len(specs))
	for _, s := range specs {
		f := FormField{
			Key:   s.InputKey,
			Label: s.Column,
			Value: values[s.InputKey],
		}
		switch s.Kind {
		case prediction.KindFloat:
			f.Kind, f.Step = "number", "any"
		case prediction.KindInt:
			f.Kind, f.Step = "number", "1"
		default:
			f.Kind = "text"
			if opts := options[s.Column]; len(opts) > 0 {
				f.Kind = "select"
				f.Options = opts
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// FormValues extracts the schema keys from a submitted form. Values are passed on as typed.
func FormValues(r *http.Request) map[string]string {
	values := make(map[string]string, prediction.NumFeatures())
	for _, key := range prediction.InputKeys() {
		if _, ok := r.PostForm[key]; ok {
			values[key] = r.PostForm.Get(key)
		}
	}
	return values
}
