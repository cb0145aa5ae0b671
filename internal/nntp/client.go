package nntp

import (
	"crypto/tls"
	"strings"
	"time"

	"nntp2sql/internal/errs"
	"nntp2sql/internal/logging"
)

// GroupInfo carries the counters of a GROUP response.
type GroupInfo struct {
	Name  string
	Count int64
	First int64
	Last  int64
}

// SessionConfig describes how to reach and enter a news server session.
type SessionConfig struct {
	Host     string
	Port     int
	UseTLS   bool // implicit TLS from the first byte
	StartTLS bool // upgrade after the greeting
	Username string
	Password string
	Timeout  time.Duration

	// TLSConfig overrides the default client TLS settings. Used by tests
	// to trust a local certificate.
	TLSConfig *tls.Config
}

// Client speaks NNTP over a Conn.
type Client struct {
	conn *Conn
	log  *logging.Logger
}

// NewClient wraps an established connection. The greeting has not been read.
func NewClient(conn *Conn, log *logging.Logger) *Client {
	return &Client{conn: conn, log: log}
}

// Connect brings up a full session: dial, optional TLS, greeting, optional
// STARTTLS upgrade and authentication. On error the connection is closed and
// the error carries the failure class.
func Connect(cfg SessionConfig, log *logging.Logger) (*Client, error) {
	var conn *Conn
	var err error
	if cfg.UseTLS {
		conn, err = DialTLS(cfg.Host, cfg.Port, cfg.Timeout, cfg.TLSConfig)
	} else {
		conn, err = Dial(cfg.Host, cfg.Port, cfg.Timeout)
	}
	if err != nil {
		return nil, err
	}
	c := NewClient(conn, log)
	if err := c.ReadGreeting(); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.StartTLS {
		if err := c.StartTLS(cfg.TLSConfig); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if cfg.Username != "" {
		if err := c.Authenticate(cfg.Username, cfg.Password); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// ReadGreeting consumes the server banner and requires a 2xx status.
func (c *Client) ReadGreeting() error {
	line, err := c.conn.ReadLine()
	if err != nil {
		return errs.New(errs.CodeGreeting, "reading greeting: %v", err)
	}
	if statusClass(line) != 2 {
		return errs.New(errs.CodeGreeting, "server refused session: %s", line)
	}
	c.log.Infof("greeting: %s", line)
	return nil
}

// StartTLS negotiates the in-band TLS upgrade. Servers answer the command
// with 382, so any non-error status up to 3xx is accepted before the
// handshake starts.
func (c *Client) StartTLS(tlsConfig *tls.Config) error {
	if err := c.conn.Sendf("STARTTLS"); err != nil {
		return errs.New(errs.CodeTLS, "sending STARTTLS: %v", err)
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return errs.New(errs.CodeTLS, "reading STARTTLS response: %v", err)
	}
	if cl := statusClass(line); cl != 2 && cl != 3 {
		return errs.New(errs.CodeTLS, "server rejected STARTTLS: %s", line)
	}
	return c.conn.StartTLS(tlsConfig)
}

// Authenticate runs the AUTHINFO USER / AUTHINFO PASS exchange. The password
// is only sent after the server asks for it with 381.
func (c *Client) Authenticate(username, password string) error {
	if err := c.conn.Sendf("AUTHINFO USER %s", username); err != nil {
		return errs.New(errs.CodeAuth, "sending AUTHINFO USER: %v", err)
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return errs.New(errs.CodeAuth, "reading AUTHINFO USER response: %v", err)
	}
	switch statusCode(line) {
	case 281:
		return nil
	case 381:
	default:
		return errs.New(errs.CodeAuth, "authentication rejected: %s", line)
	}
	if err := c.conn.Sendf("AUTHINFO PASS %s", password); err != nil {
		return errs.New(errs.CodeAuth, "sending AUTHINFO PASS: %v", err)
	}
	line, err = c.conn.ReadLine()
	if err != nil {
		return errs.New(errs.CodeAuth, "reading AUTHINFO PASS response: %v", err)
	}
	if statusCode(line) != 281 {
		return errs.New(errs.CodeAuth, "authentication failed: %s", line)
	}
	return nil
}

// SelectGroup issues GROUP and parses the article counters from the 211
// response line.
func (c *Client) SelectGroup(name string) (GroupInfo, error) {
	if err := c.conn.Sendf("GROUP %s", name); err != nil {
		return GroupInfo{}, errs.New(errs.CodeNNTPCommand, "sending GROUP: %v", err)
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return GroupInfo{}, errs.New(errs.CodeNNTPCommand, "reading GROUP response: %v", err)
	}
	if statusClass(line) != 2 {
		return GroupInfo{}, errs.New(errs.CodeNNTPCommand, "group %s not available: %s", name, line)
	}
	fields := strings.Fields(line)
	gi := GroupInfo{Name: name}
	if len(fields) > 1 {
		gi.Count = parseInt64(fields[1])
	}
	if len(fields) > 2 {
		gi.First = parseInt64(fields[2])
	}
	if len(fields) > 3 {
		gi.Last = parseInt64(fields[3])
	}
	if len(fields) > 4 {
		gi.Name = fields[4]
	}
	return gi, nil
}

// Overview fetches the raw XOVER lines for the inclusive article range. A
// rejected command is not fatal; the server just has no overview data, so an
// empty slice comes back and the caller can fall back to HEAD.
func (c *Client) Overview(first, last int64) ([]string, error) {
	if err := c.conn.Sendf("XOVER %d-%d", first, last); err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "sending XOVER: %v", err)
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "reading XOVER response: %v", err)
	}
	if statusClass(line) != 2 {
		c.log.Warnf("XOVER %d-%d rejected: %s", first, last, line)
		return nil, nil
	}
	lines, err := c.conn.ReadMultiline()
	if err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "reading XOVER data: %v", err)
	}
	return lines, nil
}

// Head fetches the raw header lines of one article. A non-2xx status means
// the article is missing or expired and yields nil lines with a nil error;
// only transport failures are errors.
func (c *Client) Head(artnum int64) ([]string, error) {
	if err := c.conn.Sendf("HEAD %d", artnum); err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "sending HEAD: %v", err)
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "reading HEAD response: %v", err)
	}
	if statusClass(line) != 2 {
		return nil, nil
	}
	lines, err := c.conn.ReadMultiline()
	if err != nil {
		return nil, errs.New(errs.CodeNNTPCommand, "reading HEAD data: %v", err)
	}
	return lines, nil
}

// Quit says goodbye and closes the transport. Errors on the way out are
// ignored; the session is finished either way.
func (c *Client) Quit() {
	if c.conn.Sendf("QUIT") == nil {
		c.conn.ReadLine()
	}
	c.conn.Close()
}

// Close drops the transport without the QUIT exchange.
func (c *Client) Close() error {
	return c.conn.Close()
}

// statusCode extracts the numeric status from a response line.
func statusCode(line string) int64 {
	return parseInt64(line)
}

// statusClass is the first digit of the status, 0 when the line does not
// start with a number.
func statusClass(line string) int64 {
	code := statusCode(line)
	if code <= 0 {
		return 0
	}
	return code / 100
}
