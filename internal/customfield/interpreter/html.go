package interpreter

import (
	"bytes"
	"embed"
	"html/template"
	"io"
)

//go:embed templates/form.html.tmpl
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html.tmpl"))

// WriteHTML renders form as admin meta box markup.
func WriteHTML(w io.Writer, form Form) error {
	return formTemplate.ExecuteTemplate(w, "form", form)
}

// HTML renders form into a fragment that can be embedded in another template.
func HTML(form Form) (template.HTML, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, form); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
