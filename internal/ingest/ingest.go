// Package ingest drives one ingestion run end to end: session bring-up,
// group selection, range computation and either the single-threaded bulk
// overview path or the per-article HEAD worker pool.
package ingest

import (
	"crypto/tls"
	"io"
	"os"
	"sync"

	"nntp2sql/internal/config"
	"nntp2sql/internal/db"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/models"
	"nntp2sql/internal/nntp"
)

// Ingestor runs one IngestionRequest against one store.
type Ingestor struct {
	req   *config.IngestionRequest
	store *db.Store
	log   *logging.Logger

	// progress sink, stdout unless overridden
	out io.Writer
	// TLS override for tests talking to a self-signed server
	tlsConfig *tls.Config

	// dbMu serializes every store call; the store itself is not safe for
	// concurrent use.
	dbMu sync.Mutex
}

func New(req *config.IngestionRequest, store *db.Store, log *logging.Logger) *Ingestor {
	return &Ingestor{req: req, store: store, log: log, out: os.Stdout}
}

// SetProgressOutput redirects the progress bar.
func (ing *Ingestor) SetProgressOutput(w io.Writer) { ing.out = w }

// SetTLSConfig overrides the TLS client settings for every session.
func (ing *Ingestor) SetTLSConfig(cfg *tls.Config) { ing.tlsConfig = cfg }

func (ing *Ingestor) sessionConfig() nntp.SessionConfig {
	return nntp.SessionConfig{
		Host:      ing.req.Host,
		Port:      ing.req.Port,
		UseTLS:    ing.req.Mode == config.ModeTLS,
		StartTLS:  ing.req.Mode == config.ModeSTARTTLS,
		Username:  ing.req.User,
		Password:  ing.req.Pass,
		TLSConfig: ing.tlsConfig,
	}
}

// Run performs the whole ingestion. Errors returned here are fatal for the
// run; per-article problems are logged and skipped.
func (ing *Ingestor) Run() error {
	client, err := nntp.Connect(ing.sessionConfig(), ing.log)
	if err != nil {
		return err
	}
	defer client.Quit()

	gi, err := client.SelectGroup(ing.req.Group)
	if err != nil {
		return err
	}
	ing.log.Infof("group %s: %d articles, range %d-%d", gi.Name, gi.Count, gi.First, gi.Last)
	group := &models.Group{
		Name:         gi.Name,
		ArticleCount: gi.Count,
		First:        gi.First,
		Last:         gi.Last,
	}
	if err := ing.store.StoreGroup(group); err != nil {
		ing.log.Warnf("store group: %v", err)
	}
	if gi.Count == 0 {
		ing.log.Infof("group %s is empty, nothing to fetch", gi.Name)
		return nil
	}

	first, last := fetchRange(gi.First, gi.Last, ing.req.Limit)
	total := last - first + 1
	if ing.req.Xover {
		return ing.runOverview(client, first, last, total)
	}
	return ing.runPool(first, last, total)
}

// fetchRange narrows [first, last] to the newest limit articles.
func fetchRange(first, last, limit int64) (int64, int64) {
	if limit > 0 && limit < last-first+1 {
		f := last - limit + 1
		if f < first {
			f = first
		}
		return f, last
	}
	return first, last
}

// runOverview drains XOVER on the main session and writes sequentially.
func (ing *Ingestor) runOverview(client *nntp.Client, first, last, total int64) error {
	lines, err := client.Overview(first, last)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		ing.log.Warnf("XOVER returned no data")
		return nil
	}
	bar := newProgressBar(ing.out, "Headers (XOVER)", ing.req.ProgressWidth, total)
	for _, line := range lines {
		ov := nntp.ParseOverviewLine(line)
		a := &models.Article{
			GroupName:  ing.req.Group,
			ArtNum:     ov.ArtNum,
			Subject:    ov.Subject,
			Author:     ov.From,
			Date:       ov.Date,
			MessageID:  ov.MessageID,
			References: ov.References,
			Bytes:      ov.Bytes,
			Lines:      ov.Lines,
		}
		if err := ing.store.StoreArticle(a); err != nil {
			ing.log.Warnf("store article #%d: %v", a.ArtNum, err)
		}
		bar.Increment()
	}
	bar.Finish()
	return nil
}

// runPool fetches per-article HEAD through min(workers, range) sessions.
func (ing *Ingestor) runPool(first, last, total int64) error {
	workers := int64(ing.req.Workers)
	if workers > total {
		workers = total
	}
	queue := newWorkQueue(first, last)
	bar := newProgressBar(ing.out, "Headers (HEAD MT)", ing.req.ProgressWidth, total)

	var wg sync.WaitGroup
	for i := int64(0); i < workers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ing.headWorker(id, queue, bar)
		}(i)
	}
	wg.Wait()
	bar.Finish()
	return nil
}

// headWorker owns one session for its whole lifetime. Bring-up failure only
// removes this worker from the pool.
func (ing *Ingestor) headWorker(id int64, queue *workQueue, bar *progressBar) {
	client, err := nntp.Connect(ing.sessionConfig(), ing.log)
	if err != nil {
		ing.log.Warnf("worker %d: connect failed: %v", id, err)
		return
	}
	defer client.Quit()
	if _, err := client.SelectGroup(ing.req.Group); err != nil {
		ing.log.Warnf("worker %d: select group: %v", id, err)
		return
	}

	for {
		artnum, ok := queue.Pop()
		if !ok {
			return
		}
		var lines []string
		for attempt := 0; attempt <= ing.req.Retries; attempt++ {
			lines, err = client.Head(artnum)
			if err != nil {
				// Transport is gone; the rest of the queue goes to
				// the other workers.
				ing.log.Warnf("worker %d: HEAD %d: %v", id, artnum, err)
				return
			}
			if lines != nil {
				break
			}
		}
		if lines == nil {
			ing.log.Warnf("worker %d: article %d unavailable, skipped", id, artnum)
			continue
		}
		h := nntp.ParseHeaderBlock(lines)
		a := &models.Article{
			GroupName:  ing.req.Group,
			ArtNum:     artnum,
			Subject:    h.Subject,
			Author:     h.From,
			Date:       h.Date,
			MessageID:  h.MessageID,
			References: h.References,
			Bytes:      h.Bytes,
			Lines:      h.Lines,
		}
		ing.dbMu.Lock()
		err = ing.store.StoreArticle(a)
		ing.dbMu.Unlock()
		if err != nil {
			ing.log.Warnf("worker %d: store article #%d: %v", id, artnum, err)
			continue
		}
		bar.Increment()
	}
}
