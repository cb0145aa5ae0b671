// Package db persists groups and article headers into SQLite or
// MySQL/MariaDB behind one store contract.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"nntp2sql/internal/errs"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/models"
)

// Backend selects the SQL flavor.
type Backend int

const (
	SQLite Backend = iota
	MySQL
)

// ParseBackend maps the user-facing backend name. MariaDB speaks the MySQL
// protocol and shares its dialect.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return 0, fmt.Errorf("unknown database type %q", name)
}

// Config holds backend selection and connection parameters. Path is the
// SQLite file; the remaining fields address a MySQL server.
type Config struct {
	Backend Backend
	Path    string
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string

	// Upsert inserts a missing row after a no-op update. Without it the
	// store only touches rows that already exist.
	Upsert bool
}

// dialect is the per-backend method table: schema, the four row statements
// and the literal escaping routine for the unprepared fallback.
type dialect struct {
	driver        string
	schema        []string
	alterUnique   string
	updateGroup   string
	insertGroup   string
	updateArticle string
	insertArticle string
	escape        func(string) string
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE,
			article_count INTEGER,
			first INTEGER,
			last INTEGER)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artnum INTEGER,
			subject TEXT,
			author TEXT,
			date TEXT,
			message_id TEXT,
			refs TEXT,
			bytes INTEGER,
			line_count INTEGER,
			group_name TEXT)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_group_artnum
			ON articles(group_name, artnum)`,
	},
	updateGroup:   `UPDATE groups SET article_count=?, first=?, last=? WHERE name=?`,
	insertGroup:   `INSERT INTO groups (name, article_count, first, last) VALUES (?, ?, ?, ?)`,
	updateArticle: `UPDATE articles SET subject=?, author=?, date=?, message_id=?, refs=?, bytes=?, line_count=? WHERE group_name=? AND artnum=?`,
	insertArticle: `INSERT INTO articles (artnum, subject, author, date, message_id, refs, bytes, line_count, group_name) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	escape:        sqliteEscape,
}

// Several column names are reserved words on MySQL, hence the backticks.
var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		"CREATE TABLE IF NOT EXISTS `groups` (" +
			"`id` BIGINT AUTO_INCREMENT PRIMARY KEY, " +
			"`name` VARCHAR(255) UNIQUE, " +
			"`article_count` BIGINT, " +
			"`first` BIGINT, " +
			"`last` BIGINT)",
		"CREATE TABLE IF NOT EXISTS `articles` (" +
			"`id` BIGINT AUTO_INCREMENT PRIMARY KEY, " +
			"`artnum` BIGINT, " +
			"`subject` TEXT, " +
			"`author` TEXT, " +
			"`date` TEXT, " +
			"`message_id` TEXT, " +
			"`refs` TEXT, " +
			"`bytes` BIGINT, " +
			"`line_count` BIGINT, " +
			"`group_name` VARCHAR(255), " +
			"UNIQUE KEY `uniq_group_artnum` (`group_name`, `artnum`))",
	},
	alterUnique:   "ALTER TABLE `articles` ADD UNIQUE KEY `uniq_group_artnum` (`group_name`, `artnum`)",
	updateGroup:   "UPDATE `groups` SET `article_count`=?, `first`=?, `last`=? WHERE `name`=?",
	insertGroup:   "INSERT INTO `groups` (`name`, `article_count`, `first`, `last`) VALUES (?, ?, ?, ?)",
	updateArticle: "UPDATE `articles` SET `subject`=?, `author`=?, `date`=?, `message_id`=?, `refs`=?, `bytes`=?, `line_count`=? WHERE `group_name`=? AND `artnum`=?",
	insertArticle: "INSERT INTO `articles` (`artnum`, `subject`, `author`, `date`, `message_id`, `refs`, `bytes`, `line_count`, `group_name`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	escape:        mysqlEscape,
}

// Store is the persistence handle. It is not safe for concurrent use; the
// caller serializes access.
type Store struct {
	db     *sql.DB
	d      dialect
	log    *logging.Logger
	upsert bool

	// Prepared once at open. A nil statement means preparation failed and
	// writes use escaped literal SQL instead.
	stmtUpdateGroup   *sql.Stmt
	stmtInsertGroup   *sql.Stmt
	stmtUpdateArticle *sql.Stmt
	stmtInsertArticle *sql.Stmt
}

func (cfg Config) dsn() string {
	if cfg.Backend == SQLite {
		return cfg.Path
	}
	// clientFoundRows makes RowsAffected count matched rows, so updating a
	// row to identical values does not look like a missing row.
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?clientFoundRows=true", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
}

// CreateDatabase creates the MySQL database if it does not exist yet. On
// SQLite the driver creates the file on first open and nothing happens here.
func CreateDatabase(cfg Config) error {
	if cfg.Backend == SQLite {
		return nil
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return errs.New(errs.CodeDBConnect, "open mysql server: %v", err)
	}
	defer conn.Close()
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Name)
	if _, err := conn.Exec(stmt); err != nil {
		return errs.New(errs.CodeDBConnect, "create database %s: %v", cfg.Name, err)
	}
	return nil
}

// Open connects to the backend, provisions the schema and prepares the row
// statements. Preparation failure is downgraded to a warning; writes then go
// through the escaped fallback.
func Open(cfg Config, log *logging.Logger) (*Store, error) {
	d := sqliteDialect
	if cfg.Backend == MySQL {
		d = mysqlDialect
	}
	conn, err := sql.Open(d.driver, cfg.dsn())
	if err != nil {
		return nil, errs.New(errs.CodeDBConnect, "open database: %v", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errs.New(errs.CodeDBConnect, "connect database: %v", err)
	}
	s := &Store{db: conn, d: d, log: log, upsert: cfg.Upsert}
	if err := s.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	s.prepare()
	return s, nil
}

func (s *Store) ensureSchema() error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return errs.New(errs.CodeDBSchema, "provision schema: %v", err)
		}
	}
	// Upgrade path for tables created before the unique key existed. A
	// duplicate key name error just means the key is already there.
	if s.d.alterUnique != "" {
		if _, err := s.db.Exec(s.d.alterUnique); err != nil {
			s.log.Infof("unique key already present: %v", err)
		}
	}
	return nil
}

func (s *Store) prepare() {
	prep := func(query string) *sql.Stmt {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			s.log.Warnf("prepare failed, using escaped statements: %v", err)
			return nil
		}
		return stmt
	}
	s.stmtUpdateGroup = prep(s.d.updateGroup)
	s.stmtInsertGroup = prep(s.d.insertGroup)
	s.stmtUpdateArticle = prep(s.d.updateArticle)
	s.stmtInsertArticle = prep(s.d.insertArticle)
}

// exec runs a row statement through its prepared form when available,
// otherwise through literal SQL with every placeholder replaced by an
// escaped argument.
func (s *Store) exec(stmt *sql.Stmt, query string, args ...any) (sql.Result, error) {
	if stmt != nil {
		return stmt.Exec(args...)
	}
	return s.db.Exec(expandQuery(query, s.d.escape, args))
}

// expandQuery substitutes ? placeholders with escaped literals for the
// unprepared fallback path.
func expandQuery(query string, escape func(string) string, args []any) string {
	var b strings.Builder
	i := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		if i < len(args) {
			switch v := args[i].(type) {
			case string:
				b.WriteString(escape(v))
			default:
				fmt.Fprintf(&b, "%v", v)
			}
			i++
		}
	}
	return b.String()
}

// StoreGroup writes the group counters using update-then-insert.
func (s *Store) StoreGroup(g *models.Group) error {
	res, err := s.exec(s.stmtUpdateGroup, s.d.updateGroup,
		g.ArticleCount, g.First, g.Last, g.Name)
	if err != nil {
		return fmt.Errorf("update group %s: %w", g.Name, err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		return nil
	}
	if !s.upsert {
		s.log.Warnf("group not found for update: %s", g.Name)
		return nil
	}
	if _, err := s.exec(s.stmtInsertGroup, s.d.insertGroup,
		g.Name, g.ArticleCount, g.First, g.Last); err != nil {
		return fmt.Errorf("insert group %s: %w", g.Name, err)
	}
	s.log.Infof("group inserted: %s", g.Name)
	return nil
}

// StoreArticle writes one article row using update-then-insert. With upsert
// off a missing row only gets a warning.
func (s *Store) StoreArticle(a *models.Article) error {
	res, err := s.exec(s.stmtUpdateArticle, s.d.updateArticle,
		a.Subject, a.Author, a.Date, a.MessageID, a.References,
		a.Bytes, a.Lines, a.GroupName, a.ArtNum)
	if err != nil {
		return fmt.Errorf("update article %s #%d: %w", a.GroupName, a.ArtNum, err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		return nil
	}
	if !s.upsert {
		s.log.Warnf("article not found for update: %s #%d", a.GroupName, a.ArtNum)
		return nil
	}
	if _, err := s.exec(s.stmtInsertArticle, s.d.insertArticle,
		a.ArtNum, a.Subject, a.Author, a.Date, a.MessageID,
		a.References, a.Bytes, a.Lines, a.GroupName); err != nil {
		return fmt.Errorf("insert article %s #%d: %w", a.GroupName, a.ArtNum, err)
	}
	s.log.Infof("article inserted: %s #%d", a.GroupName, a.ArtNum)
	return nil
}

// Close finalizes the prepared statements and the connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtUpdateGroup, s.stmtInsertGroup,
		s.stmtUpdateArticle, s.stmtInsertArticle,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// sqliteEscape quotes a string literal the SQLite way: single quotes double.
func sqliteEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// mysqlEscape quotes a string literal with MySQL backslash escaping.
func mysqlEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
