// Package nntp implements the client side of the NNTP protocol as needed for
// header ingestion: connecting (plain, TLS or STARTTLS), authenticating,
// selecting a group and fetching overview or head data.
package nntp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"nntp2sql/internal/errs"
)

const (
	// MaxLineLen is the hard cap on a single protocol line including CRLF.
	MaxLineLen = 8192

	// DefaultPort is the cleartext NNTP port.
	DefaultPort = 119
	// DefaultTLSPort is the implicit-TLS NNTPS port.
	DefaultTLSPort = 563

	// DefaultConnectTimeout bounds the TCP dial per resolved address.
	DefaultConnectTimeout = 30 * time.Second
)

var (
	// ErrTransportClosed reports that the peer closed the connection or an
	// I/O error occurred mid-line.
	ErrTransportClosed = errors.New("nntp: transport closed")

	// ErrProtocolOverflow reports a protocol line exceeding MaxLineLen. The
	// truncated line read so far is still returned alongside it.
	ErrProtocolOverflow = errors.New("nntp: line exceeds maximum length")
)

// Conn is a single NNTP transport connection. Reads go byte by byte straight
// to the socket so that no buffered read-ahead can swallow TLS handshake
// bytes during a STARTTLS upgrade.
type Conn struct {
	sock   net.Conn
	host   string
	closed bool
}

// Dial connects to host:port, trying every resolved address in order until
// one accepts. A nil error means the TCP session is up; no greeting has been
// read yet.
func Dial(host string, port int, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, errs.New(errs.CodeDNS, "resolve %s: %v", host, err)
	}
	portStr := strconv.Itoa(port)
	var lastErr error
	for _, addr := range addrs {
		sock, err := net.DialTimeout("tcp", net.JoinHostPort(addr, portStr), timeout)
		if err != nil {
			lastErr = err
			continue
		}
		return &Conn{sock: sock, host: host}, nil
	}
	return nil, errs.New(errs.CodeConnect, "connect %s:%d: %v", host, port, lastErr)
}

// DialTLS connects like Dial and then performs an immediate TLS handshake,
// verifying the certificate against host. tlsConfig may be nil.
func DialTLS(host string, port int, timeout time.Duration, tlsConfig *tls.Config) (*Conn, error) {
	c, err := Dial(host, port, timeout)
	if err != nil {
		return nil, err
	}
	if err := c.upgradeTLS(tlsConfig); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// StartTLS replaces the transport with a TLS session over the same socket.
// The caller must have received a positive STARTTLS response first; any
// protocol line read after this call travels encrypted.
func (c *Conn) StartTLS(tlsConfig *tls.Config) error {
	if c.closed {
		return ErrTransportClosed
	}
	return c.upgradeTLS(tlsConfig)
}

func (c *Conn) upgradeTLS(tlsConfig *tls.Config) error {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if tlsConfig != nil {
		cfg = tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.host
	}
	tlsConn := tls.Client(c.sock, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return errs.New(errs.CodeTLS, "tls handshake with %s: %v", c.host, err)
	}
	c.sock = tlsConn
	return nil
}

// ReadLine reads one CRLF-terminated protocol line and returns it without the
// terminator. A bare LF also ends the line; a CR not followed by LF is kept.
// At MaxLineLen the truncated line is returned with ErrProtocolOverflow and
// the rest of the oversized line is left unread.
func (c *Conn) ReadLine() (string, error) {
	if c.closed {
		return "", ErrTransportClosed
	}
	buf := make([]byte, 0, 256)
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(c.sock, one); err != nil {
			return string(buf), ErrTransportClosed
		}
		b := one[0]
		if b == '\n' {
			if n := len(buf); n > 0 && buf[n-1] == '\r' {
				buf = buf[:n-1]
			}
			return string(buf), nil
		}
		buf = append(buf, b)
		if len(buf) >= MaxLineLen {
			return string(buf), ErrProtocolOverflow
		}
	}
}

// ReadMultiline reads the data block of a multi-line response up to the lone
// "." terminator, which is not included. A leading dot on any line is
// dot-stuffing and gets stripped.
func (c *Conn) ReadMultiline() ([]string, error) {
	var lines []string
	for {
		line, err := c.ReadLine()
		if err != nil {
			return lines, err
		}
		if line == "." {
			return lines, nil
		}
		if len(line) > 0 && line[0] == '.' {
			line = line[1:]
		}
		lines = append(lines, line)
	}
}

// Sendf formats one command and writes it out, appending CRLF unless the
// formatted text already ends with it.
func (c *Conn) Sendf(format string, args ...any) error {
	if c.closed {
		return ErrTransportClosed
	}
	line := fmt.Sprintf(format, args...)
	if len(line) < 2 || line[len(line)-2:] != "\r\n" {
		line += "\r\n"
	}
	if _, err := io.WriteString(c.sock, line); err != nil {
		return ErrTransportClosed
	}
	return nil
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sock.Close()
}
