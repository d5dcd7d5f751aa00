// Package templates renders the single-page UI as templ components.
// Components live in page.templ; run `templ generate` after editing it.
package templates

import "net/url"

// Alert is an error shown in place of the selector and preview.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// PageData is everything the index page shows.
type PageData struct {
	Title    string
	Source   string
	Values   []string
	Selected string

	// Preview, only set when Selected is non-empty.
	Columns []string
	Rows    [][]string
	Total   int

	Error *Alert
}

const defaultTitle = "Filtrar por establecimiento"

func (d PageData) title() string {
	if d.Title == "" {
		return defaultTitle
	}
	return d.Title
}

// DownloadURL is the export link for a selection.
func DownloadURL(selection string) string {
	return "/download?establecimiento=" + url.QueryEscape(selection)
}
