package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"nntp2sql/internal/config"
	"nntp2sql/internal/db"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/nntp/nntptest"
)

func TestFetchRange(t *testing.T) {
	tests := []struct {
		name                string
		first, last, limit  int64
		wantFirst, wantLast int64
	}{
		{"no limit", 1, 100, 0, 1, 100},
		{"limit larger than range", 1, 10, 50, 1, 10},
		{"limit equals range", 1, 10, 10, 1, 10},
		{"limit narrows", 1, 100, 4, 97, 100},
		{"limit of one", 1, 100, 1, 100, 100},
		{"clamped to first", 90, 100, 50, 90, 100},
		{"offset range", 500, 600, 10, 591, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := fetchRange(tt.first, tt.last, tt.limit)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("fetchRange(%d, %d, %d) = [%d, %d], want [%d, %d]",
					tt.first, tt.last, tt.limit, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestWorkQueue(t *testing.T) {
	q := newWorkQueue(5, 8)
	for want := int64(5); want <= 8; want++ {
		n, ok := q.Pop()
		if !ok || n != want {
			t.Fatalf("Pop = (%d, %v), want (%d, true)", n, ok, want)
		}
	}
	if n, ok := q.Pop(); ok {
		t.Fatalf("Pop on drained queue = (%d, true)", n)
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(&buf, "Headers (XOVER)", 10, 4)
	bar.Increment()
	bar.Increment()
	out := buf.String()
	want := "\rHeaders (XOVER): [#####.....]  50% (2/4)"
	if !strings.HasSuffix(out, want) {
		t.Errorf("bar output %q, want suffix %q", out, want)
	}
	bar.Increment()
	bar.Increment()
	bar.Finish()
	if !strings.Contains(buf.String(), "[##########] 100% (4/4)") {
		t.Errorf("final bar output %q", buf.String())
	}
}

func runIngest(t *testing.T, srv *nntptest.Server, req *config.IngestionRequest, store *db.Store) error {
	t.Helper()
	req.Host = srv.Addr
	req.Port = srv.Port
	req.ApplyDefaults()
	ing := New(req, store, logging.New())
	ing.SetProgressOutput(io.Discard)
	return ing.Run()
}

func openStore(t *testing.T, path string, upsert bool) *db.Store {
	t.Helper()
	store, err := db.Open(db.Config{Backend: db.SQLite, Path: path, Upsert: upsert}, logging.New())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunEmptyGroup(t *testing.T) {
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"misc.test": {}},
	})
	store := openStore(t, filepath.Join(t.TempDir(), "test.db"), true)
	req := config.New()
	req.Group = "misc.test"
	req.Xover = true
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("Run: %v", err)
	}

	groups, err := store.Groups()
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d group rows, want 1", len(groups))
	}
	g := groups[0]
	if g.Name != "misc.test" || g.ArticleCount != 0 || g.First != 0 || g.Last != 0 {
		t.Errorf("group row = %+v", g)
	}
	arts, err := store.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 0 {
		t.Errorf("got %d article rows for empty group", len(arts))
	}
	for _, cmd := range srv.Commands() {
		if strings.HasPrefix(cmd, "XOVER") {
			t.Errorf("XOVER issued against empty group")
		}
	}
}

func TestRunBulkOverview(t *testing.T) {
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"test": {
			Count: 3,
			First: 1,
			Last:  3,
			Overview: []string{
				"1\ta\tu1@x\td1\t<m1@x>\t\t10\t1",
				"2\tb\tu2@x\td2\t<m2@x>\t<m1@x>\t20\t2",
				"3\tc\tu3@x\td3\t<m3@x>\t\t30\t3",
			},
		}},
	})
	store := openStore(t, filepath.Join(t.TempDir(), "test.db"), true)
	req := config.New()
	req.Group = "test"
	req.Xover = true
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("Run: %v", err)
	}

	groups, err := store.Groups()
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ArticleCount != 3 || groups[0].First != 1 || groups[0].Last != 3 {
		t.Errorf("group rows = %+v", groups)
	}
	arts, err := store.Articles("test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 3 {
		t.Fatalf("got %d article rows, want 3", len(arts))
	}
	wantSubjects := []string{"a", "b", "c"}
	for i, a := range arts {
		if a.ArtNum != int64(i+1) || a.Subject != wantSubjects[i] {
			t.Errorf("row %d = #%d %q, want #%d %q", i, a.ArtNum, a.Subject, i+1, wantSubjects[i])
		}
	}
}

func headBlock(n int64) []string {
	return []string{
		fmt.Sprintf("Subject: article %d", n),
		fmt.Sprintf("From: poster%d@example.org", n),
		"Date: Mon, 4 Jan 2021 00:00:00 +0000",
		fmt.Sprintf("Message-ID: <m%d@example.org>", n),
		"Lines: 10",
	}
}

func TestRunHeadPool(t *testing.T) {
	heads := make(map[int64][]string, 100)
	for n := int64(1); n <= 100; n++ {
		heads[n] = headBlock(n)
	}
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"misc.test": {
			Count: 100, First: 1, Last: 100, Heads: heads,
		}},
	})
	store := openStore(t, filepath.Join(t.TempDir(), "test.db"), true)
	req := config.New()
	req.Group = "misc.test"
	req.Workers = 4
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("Run: %v", err)
	}

	arts, err := store.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 100 {
		t.Fatalf("got %d article rows, want 100", len(arts))
	}
	seen := make(map[int64]bool, 100)
	for _, a := range arts {
		if seen[a.ArtNum] {
			t.Errorf("duplicate artnum %d", a.ArtNum)
		}
		seen[a.ArtNum] = true
		if want := fmt.Sprintf("article %d", a.ArtNum); a.Subject != want {
			t.Errorf("artnum %d subject = %q, want %q", a.ArtNum, a.Subject, want)
		}
	}
	for n := int64(1); n <= 100; n++ {
		if !seen[n] {
			t.Errorf("artnum %d missing", n)
		}
	}
}

func TestRunHeadRetryExhaustion(t *testing.T) {
	heads := make(map[int64][]string)
	for n := int64(1); n <= 10; n++ {
		if n == 5 {
			continue // this article always answers 423
		}
		heads[n] = headBlock(n)
	}
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"misc.test": {
			Count: 10, First: 1, Last: 10, Heads: heads,
		}},
	})
	store := openStore(t, filepath.Join(t.TempDir(), "test.db"), true)
	req := config.New()
	req.Group = "misc.test"
	req.Retries = 2
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("Run: %v", err)
	}

	arts, err := store.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 9 {
		t.Fatalf("got %d article rows, want 9", len(arts))
	}
	for _, a := range arts {
		if a.ArtNum == 5 {
			t.Errorf("skipped article 5 was persisted")
		}
	}
	attempts := 0
	for _, cmd := range srv.Commands() {
		if cmd == "HEAD 5" {
			attempts++
		}
	}
	if attempts != 3 {
		t.Errorf("HEAD 5 issued %d times, want 3 (1 try + 2 retries)", attempts)
	}
}

func TestRunHeadLimit(t *testing.T) {
	heads := make(map[int64][]string)
	for n := int64(1); n <= 10; n++ {
		heads[n] = headBlock(n)
	}
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"misc.test": {
			Count: 10, First: 1, Last: 10, Heads: heads,
		}},
	})
	store := openStore(t, filepath.Join(t.TempDir(), "test.db"), true)
	req := config.New()
	req.Group = "misc.test"
	req.Limit = 4
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("Run: %v", err)
	}

	arts, err := store.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 4 {
		t.Fatalf("got %d article rows, want newest 4", len(arts))
	}
	for i, a := range arts {
		if want := int64(7 + i); a.ArtNum != want {
			t.Errorf("row %d artnum = %d, want %d", i, a.ArtNum, want)
		}
	}
}

func TestRunReingestUpsert(t *testing.T) {
	heads := make(map[int64][]string)
	for n := int64(1); n <= 10; n++ {
		heads[n] = headBlock(n)
	}
	srv := nntptest.Start(t, &nntptest.Server{
		Groups: map[string]nntptest.Group{"misc.test": {
			Count: 10, First: 1, Last: 10, Heads: heads,
		}},
	})
	path := filepath.Join(t.TempDir(), "test.db")

	store := openStore(t, path, true)
	req := config.New()
	req.Group = "misc.test"
	if err := runIngest(t, srv, req, store); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := store.DeleteArticle("misc.test", 5); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	store.Close()

	// Upsert off leaves the externally removed row missing.
	noUpsert := openStore(t, path, false)
	req2 := config.New()
	req2.Group = "misc.test"
	req2.Upsert = false
	if err := runIngest(t, srv, req2, noUpsert); err != nil {
		t.Fatalf("second run: %v", err)
	}
	arts, err := noUpsert.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 9 {
		t.Fatalf("got %d rows after upsert-off run, want 9", len(arts))
	}
	noUpsert.Close()

	// Upsert on brings it back.
	again := openStore(t, path, true)
	req3 := config.New()
	req3.Group = "misc.test"
	if err := runIngest(t, srv, req3, again); err != nil {
		t.Fatalf("third run: %v", err)
	}
	arts, err = again.Articles("misc.test")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(arts) != 10 {
		t.Fatalf("got %d rows after upsert-on run, want 10", len(arts))
	}
}
