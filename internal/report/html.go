package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Static page filenames written next to the result images.
const (
	IndexPage   = "index.html"
	ComparePage = "comparison.html"
	ReviewPage  = "review.html"
)

// pageData is what every template receives. ImagePrefix distinguishes the
// static pages (images live beside the HTML) from the HTTP server (images
// are mounted under /results/).
type pageData struct {
	Report      *Report
	ImagePrefix string
	IndexHref   string
	CompareHref string
	ReviewHref  string
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse templates: %w", err)
	}
	return tmpl, nil
}

// WritePages renders the summary, comparison and review pages into dir as
// static HTML referencing the images by relative filename.
func WritePages(r *Report, dir string) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return err
	}
	data := pageData{
		Report:      r,
		IndexHref:   IndexPage,
		CompareHref: ComparePage,
		ReviewHref:  ReviewPage,
	}
	pages := map[string]string{
		IndexPage:   "index.html",
		ComparePage: "compare.html",
		ReviewPage:  "review.html",
	}
	for name, tpl := range pages {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, tpl, data); err != nil {
			return fmt.Errorf("report: render %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("report: write %s: %w", path, err)
		}
	}
	return nil
}
