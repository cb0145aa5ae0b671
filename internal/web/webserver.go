// Package web serves a read-only browser over the ingested groups and
// article headers.
package web

import (
	"crypto/subtle"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"nntp2sql/internal/db"
	"nntp2sql/internal/errs"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/models"
)

// searchLimit caps filtered article listings.
const searchLimit = 1000

const pageStyle = `body{font-family:Helvetica,Arial,sans-serif;margin:20px}h1{font-size:18px}table{border-collapse:collapse;width:100%}th,td{border:1px solid #ddd;padding:6px}th{background:#f7f7f7}form{margin-bottom:12px}`

var pageTmpl = template.Must(template.New("groups").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Groups</title>
<style>` + pageStyle + `</style>
</head><body><h1>Groups</h1>
<table><thead><tr><th>Group</th><th>Articles</th><th>First</th><th>Last</th></tr></thead><tbody>
{{range .Groups}}<tr><td><a href="/groups/{{.Name}}">{{.Name}}</a></td><td>{{.ArticleCount}}</td><td>{{.First}}</td><td>{{.Last}}</td></tr>
{{end}}</tbody></table>
</body></html>
`))

var articlesTmpl = template.Must(template.New("articles").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Group}}</title>
<style>` + pageStyle + `</style>
</head><body><h1>{{.Group}}</h1>
<form method="get" action=""><input type="text" name="q" value="{{.Query}}" placeholder="filter subject or author"><button>Filter</button></form>
{{if .Truncated}}<p>Showing first {{len .Articles}} matches.</p>{{end}}
<table><thead><tr><th>ArtNum</th><th>Subject</th><th>From</th><th>Date</th></tr></thead><tbody>
{{range .Articles}}<tr><td>{{.ArtNum}}</td><td>{{.Subject}}</td><td>{{.Author}}</td><td>{{.Date}}</td></tr>
{{end}}</tbody></table>
<p><a href="/">All groups</a></p>
</body></html>
`))

type articleRow struct {
	ArtNum  int64
	Subject string
	Author  string
	Date    string
}

// Server is the gin application around one store.
type Server struct {
	store  *db.Store
	log    *logging.Logger
	router *gin.Engine

	// The store handle is not safe for concurrent use; every query runs
	// under this mutex.
	mu sync.Mutex

	authUser string
	authHash string
}

// NewServer builds the router. authSpec enables HTTP basic auth when set,
// given as "user:bcrypt-hash".
func NewServer(store *db.Store, log *logging.Logger, authSpec string) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	router.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s := &Server{store: store, log: log, router: router}
	if authSpec != "" {
		user, hash, ok := strings.Cut(authSpec, ":")
		if !ok || user == "" || !strings.HasPrefix(hash, "$2") {
			return nil, errs.New(errs.CodeConfig, "auth wants user:bcrypt-hash")
		}
		s.authUser = user
		s.authHash = hash
		router.Use(s.basicAuth)
	}

	router.GET("/", s.handleGroups)
	router.GET("/groups/:group", s.handleArticles)
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Infof("web listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) basicAuth(c *gin.Context) {
	user, pass, ok := c.Request.BasicAuth()
	userOK := ok && subtle.ConstantTimeCompare([]byte(user), []byte(s.authUser)) == 1
	passOK := ok && bcrypt.CompareHashAndPassword([]byte(s.authHash), []byte(pass)) == nil
	if !userOK || !passOK {
		c.Header("WWW-Authenticate", `Basic realm="nntp2sql"`)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

func (s *Server) handleGroups(c *gin.Context) {
	s.mu.Lock()
	groups, err := s.store.Groups()
	s.mu.Unlock()
	if err != nil {
		s.log.Errorf("list groups: %v", err)
		c.String(http.StatusInternalServerError, "database error")
		return
	}
	var buf strings.Builder
	if err := pageTmpl.Execute(&buf, gin.H{"Groups": groups}); err != nil {
		s.log.Errorf("render groups: %v", err)
		c.String(http.StatusInternalServerError, "template error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(buf.String()))
}

func (s *Server) handleArticles(c *gin.Context) {
	group := c.Param("group")
	query := c.Query("q")

	var (
		articles []models.Article
		err      error
	)
	s.mu.Lock()
	if query != "" {
		pattern := fmt.Sprintf("%%%s%%", query)
		articles, err = s.store.SearchArticles(group, pattern, searchLimit)
	} else {
		articles, err = s.store.Articles(group)
	}
	s.mu.Unlock()
	if err != nil {
		s.log.Errorf("list articles of %s: %v", group, err)
		c.String(http.StatusInternalServerError, "database error")
		return
	}

	rows := make([]articleRow, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, articleRow{
			ArtNum:  a.ArtNum,
			Subject: models.DecodeHeaderText(a.Subject),
			Author:  models.DecodeHeaderText(a.Author),
			Date:    a.Date,
		})
	}
	var buf strings.Builder
	err = articlesTmpl.Execute(&buf, gin.H{
		"Group":     group,
		"Query":     query,
		"Articles":  rows,
		"Truncated": query != "" && len(rows) == searchLimit,
	})
	if err != nil {
		s.log.Errorf("render articles: %v", err)
		c.String(http.StatusInternalServerError, "template error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(buf.String()))
}
