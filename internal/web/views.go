package web

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// imageTypeChoices are offered on the upload form.
var imageTypeChoices = core.DefaultImageExtensions

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	selected := make(map[string]bool, len(s.cfg.Import.AllowedImageTypes))
	for _, ext := range s.cfg.Import.AllowedImageTypes {
		selected[ext] = true
	}
	templ.Handler(UploadPage(imageTypeChoices, selected)).ServeHTTP(w, r)
}

// UploadPage renders the import form.
func UploadPage(choices []string, selected map[string]bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Content Import</title>
</head>
<body>
<main>
<h1>Import content</h1>
<p>Upload CSV or Excel files with the columns name, title, description and image path. The first row is treated as a header.</p>
<form method="post" action="/api/import" enctype="multipart/form-data">
<label>Files <input type="file" name="files" accept=".csv,.xlsx,.xls" multiple required></label>
<fieldset>
<legend>Allowed image types</legend>
`); err != nil {
			return err
		}

		for _, ext := range choices {
			checked := ""
			if selected[ext] {
				checked = " checked"
			}
			if _, err := fmt.Fprintf(w, "<label><input type=\"checkbox\" name=\"imageTypes\" value=\"%s\"%s> %s</label>\n",
				templ.EscapeString(ext), checked, templ.EscapeString(ext)); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</fieldset>
<button type="submit">Import</button>
</form>
</main>
</body>
</html>
`)
		return err
	})
}

// ImportResult renders an outcome fragment for HTMX requests.
func ImportResult(resp importResponse) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "result result-success"
		if !resp.Success {
			class = "result result-error"
		}
		if _, err := fmt.Fprintf(w, "<div class=\"%s\" data-batch=\"%s\">\n<p>%s</p>\n<ul>\n",
			class, templ.EscapeString(resp.BatchID), templ.EscapeString(resp.Message)); err != nil {
			return err
		}
		for _, f := range resp.Files {
			if _, err := fmt.Fprintf(w, "<li>%s: %d created. %s</li>\n",
				templ.EscapeString(f.File), f.Created, templ.EscapeString(f.Message)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n</div>\n")
		return err
	})
}

// ErrorAlert renders a request-level error fragment.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"alert alert-error\" role=\"alert\"><strong>%s</strong> <span>%s</span> <code>%s</code></div>\n",
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
}
