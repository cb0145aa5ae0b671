package db

import (
	"fmt"

	"nntp2sql/internal/models"
)

// Read queries for the exporter and the web browser. Like the writes, these
// run on the shared handle and rely on the caller for serialization.

const (
	sqliteSelectGroups   = `SELECT id, name, article_count, first, last FROM groups ORDER BY name`
	mysqlSelectGroups    = "SELECT `id`, `name`, `article_count`, `first`, `last` FROM `groups` ORDER BY `name`"
	sqliteSelectArticles = `SELECT id, artnum, subject, author, date, message_id, refs, bytes, line_count FROM articles WHERE group_name=? ORDER BY artnum`
	mysqlSelectArticles  = "SELECT `id`, `artnum`, `subject`, `author`, `date`, `message_id`, `refs`, `bytes`, `line_count` FROM `articles` WHERE `group_name`=? ORDER BY `artnum`"
	sqliteSearchArticles = `SELECT id, artnum, subject, author, date, message_id, refs, bytes, line_count FROM articles WHERE group_name=? AND (subject LIKE ? OR author LIKE ?) ORDER BY artnum LIMIT ?`
	mysqlSearchArticles  = "SELECT `id`, `artnum`, `subject`, `author`, `date`, `message_id`, `refs`, `bytes`, `line_count` FROM `articles` WHERE `group_name`=? AND (`subject` LIKE ? OR `author` LIKE ?) ORDER BY `artnum` LIMIT ?"
)

// Groups returns every stored group ordered by name.
func (s *Store) Groups() ([]models.Group, error) {
	query := sqliteSelectGroups
	if s.d.driver == "mysql" {
		query = mysqlSelectGroups
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()
	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.ArticleCount, &g.First, &g.Last); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Articles returns every article of a group in artnum order.
func (s *Store) Articles(group string) ([]models.Article, error) {
	query := sqliteSelectArticles
	if s.d.driver == "mysql" {
		query = mysqlSelectArticles
	}
	return s.queryArticles(group, query, group)
}

// SearchArticles returns up to limit articles of a group whose subject or
// author matches the LIKE pattern, in artnum order.
func (s *Store) SearchArticles(group, pattern string, limit int) ([]models.Article, error) {
	query := sqliteSearchArticles
	if s.d.driver == "mysql" {
		query = mysqlSearchArticles
	}
	return s.queryArticles(group, query, group, pattern, pattern, limit)
}

func (s *Store) queryArticles(group, query string, args ...any) ([]models.Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles of %s: %w", group, err)
	}
	defer rows.Close()
	var articles []models.Article
	for rows.Next() {
		a := models.Article{GroupName: group}
		if err := rows.Scan(&a.ID, &a.ArtNum, &a.Subject, &a.Author, &a.Date,
			&a.MessageID, &a.References, &a.Bytes, &a.Lines); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// DeleteArticle removes one row. Exists for tests and manual repair.
func (s *Store) DeleteArticle(group string, artnum int64) error {
	query := `DELETE FROM articles WHERE group_name=? AND artnum=?`
	if s.d.driver == "mysql" {
		query = "DELETE FROM `articles` WHERE `group_name`=? AND `artnum`=?"
	}
	_, err := s.db.Exec(query, group, artnum)
	return err
}
