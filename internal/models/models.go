// Package models holds the persisted record types shared between the
// ingester, the exporter and the web browser.
package models

// Group mirrors one row of the groups table. Counters come verbatim from the
// GROUP response of the news server.
type Group struct {
	ID           int64
	Name         string
	ArticleCount int64
	First        int64
	Last         int64
}

// Article mirrors one row of the articles table. Header values are stored
// verbatim as received; Date in particular is never parsed.
// An article is identified by the (GroupName, ArtNum) pair.
type Article struct {
	ID         int64
	GroupName  string
	ArtNum     int64
	Subject    string
	Author     string
	Date       string
	MessageID  string
	References string
	Bytes      int64
	Lines      int64
}
