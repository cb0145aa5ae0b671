// Package export renders persisted groups as static HTML pages.
package export

import (
	"bufio"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"nntp2sql/internal/db"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/models"
)

const pageStyle = `body{font-family:Helvetica,Arial,sans-serif;margin:20px}h1{font-size:18px}nav a{margin-right:8px}table{border-collapse:collapse;width:100%}th,td{border:1px solid #ddd;padding:6px}th{background:#f7f7f7}`

var groupTmpl = template.Must(template.New("group").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>` + pageStyle + `</style>
</head><body><h1>{{.Title}}</h1>
<nav>{{if .Prev}}<a href="{{.Prev}}">Prev</a>{{end}}{{if .Next}}<a href="{{.Next}}">Next</a>{{end}}</nav>
<table><thead><tr><th>ArtNum</th><th>Subject</th><th>From</th><th>Date</th></tr></thead><tbody>
{{range .Articles}}<tr><td>{{.ArtNum}}</td><td>{{.Subject}}</td><td>{{.Author}}</td><td>{{.Date}}</td></tr>
{{end}}</tbody></table>
</body></html>
`))

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Group Index</title>
<style>` + pageStyle + `</style>
</head><body><h1>Group Index</h1>
<ul>
{{range .}}<li><a href="{{.}}.html">{{.}}</a></li>
{{end}}</ul>
</body></html>
`))

type pageRow struct {
	ArtNum  int64
	Subject string
	Author  string
	Date    string
}

type pageData struct {
	Title    string
	Prev     string
	Next     string
	Articles []pageRow
}

// Exporter writes HTML pages from a store.
type Exporter struct {
	store *db.Store
	log   *logging.Logger
}

func New(store *db.Store, log *logging.Logger) *Exporter {
	return &Exporter{store: store, log: log}
}

// pageRows converts stored articles for display; header text is decoded to
// UTF-8 on the way out.
func pageRows(articles []models.Article) []pageRow {
	rows := make([]pageRow, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, pageRow{
			ArtNum:  a.ArtNum,
			Subject: models.DecodeHeaderText(a.Subject),
			Author:  models.DecodeHeaderText(a.Author),
			Date:    a.Date,
		})
	}
	return rows
}

func writePage(path string, data pageData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := groupTmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// Group writes one page with every article of the group.
func (e *Exporter) Group(group, outPath string) error {
	articles, err := e.store.Articles(group)
	if err != nil {
		return err
	}
	e.log.Infof("exporting %s: %d articles to %s", group, len(articles), outPath)
	return writePage(outPath, pageData{Title: group, Articles: pageRows(articles)})
}

// GroupPaginated splits the group over pages of pageSize rows, written as
// <group>-N.html with prev/next navigation.
func (e *Exporter) GroupPaginated(group, outDir string, pageSize int) error {
	if pageSize <= 0 {
		return fmt.Errorf("page size %d invalid", pageSize)
	}
	articles, err := e.store.Articles(group)
	if err != nil {
		return err
	}
	rows := pageRows(articles)
	pages := (len(rows) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	for page := 1; page <= pages; page++ {
		lo := (page - 1) * pageSize
		hi := lo + pageSize
		if hi > len(rows) {
			hi = len(rows)
		}
		data := pageData{
			Title:    fmt.Sprintf("%s (page %d)", group, page),
			Articles: rows[lo:hi],
		}
		if page > 1 {
			data.Prev = fmt.Sprintf("%s-%d.html", group, page-1)
		}
		if page < pages {
			data.Next = fmt.Sprintf("%s-%d.html", group, page+1)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-%d.html", group, page))
		if err := writePage(path, data); err != nil {
			return err
		}
	}
	e.log.Infof("exported %s: %d articles over %d pages", group, len(rows), pages)
	return nil
}

// GroupsFromFile exports every group named in the list file (one per line)
// plus an index.html linking them all.
func (e *Exporter) GroupsFromFile(listPath, outDir string) error {
	f, err := os.Open(listPath)
	if err != nil {
		return fmt.Errorf("open group list %s: %w", listPath, err)
	}
	defer f.Close()

	var groups []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		groups = append(groups, name)
		if err := e.Group(name, filepath.Join(outDir, name+".html")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read group list %s: %w", listPath, err)
	}

	idx, err := os.Create(filepath.Join(outDir, "index.html"))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := indexTmpl.Execute(idx, groups); err != nil {
		idx.Close()
		return fmt.Errorf("render index: %w", err)
	}
	return idx.Close()
}
