// Package nntptest runs a scriptable in-process news server for tests. It
// speaks just enough of the protocol to exercise session bring-up, group
// selection and the overview and head fetch paths.
package nntptest

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Group is one newsgroup served by the fake server.
type Group struct {
	// Count, First and Last are echoed verbatim in the GROUP response.
	Count int64
	First int64
	Last  int64
	// Overview holds raw XOVER lines, already tab separated.
	Overview []string
	// Heads maps article numbers to raw header lines. Articles inside the
	// range but absent here answer HEAD with 423.
	Heads map[int64][]string
	// RejectXover makes XOVER answer 500 regardless of range.
	RejectXover bool
}

// Server is a fake news server listening on a loopback port.
type Server struct {
	Addr string
	Port int

	// Greeting overrides the banner sent on connect.
	Greeting string
	// Username and Password accepted by AUTHINFO. Empty means any
	// credentials pass.
	Username string
	Password string
	// TLS serves implicit TLS on the listening socket.
	TLS *tls.Config
	// StartTLS enables the STARTTLS command, upgrading with this config.
	StartTLS *tls.Config
	// FlakyHeads makes the first N HEAD commands per connection answer
	// 503, for retry tests.
	FlakyHeads int

	Groups map[string]Group

	ln   net.Listener
	mu   sync.Mutex
	cmds []string
}

// Start launches the server on 127.0.0.1 and registers cleanup with t.
func Start(t *testing.T, srv *Server) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("nntptest: listen: %v", err)
	}
	if srv.TLS != nil {
		ln = tls.NewListener(ln, srv.TLS)
	}
	srv.ln = ln
	addr := ln.Addr().(*net.TCPAddr)
	srv.Addr = "127.0.0.1"
	srv.Port = addr.Port
	go srv.acceptLoop()
	t.Cleanup(srv.Stop)
	return srv
}

// Stop closes the listener. Connections already accepted run until the
// client disconnects.
func (s *Server) Stop() {
	s.ln.Close()
}

// Commands returns every command line received so far, in arrival order
// across all connections.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cmds))
	copy(out, s.cmds)
	return out
}

func (s *Server) record(cmd string) {
	s.mu.Lock()
	s.cmds = append(s.cmds, cmd)
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	greeting := s.Greeting
	if greeting == "" {
		greeting = "200 nntptest ready"
	}
	fmt.Fprintf(conn, "%s\r\n", greeting)

	flaky := s.FlakyHeads
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		s.record(line)
		verb, rest, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "QUIT":
			fmt.Fprintf(conn, "205 bye\r\n")
			return
		case "STARTTLS":
			if s.StartTLS == nil {
				fmt.Fprintf(conn, "580 can not initiate TLS\r\n")
				continue
			}
			fmt.Fprintf(conn, "382 continue with TLS negotiation\r\n")
			tlsConn := tls.Server(conn, s.StartTLS)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			conn = tlsConn
			r = bufio.NewReader(conn)
		case "AUTHINFO":
			sub, arg, _ := strings.Cut(rest, " ")
			switch strings.ToUpper(sub) {
			case "USER":
				if s.Username != "" && arg != s.Username {
					fmt.Fprintf(conn, "481 authentication failed\r\n")
					continue
				}
				fmt.Fprintf(conn, "381 password required\r\n")
			case "PASS":
				if s.Password != "" && arg != s.Password {
					fmt.Fprintf(conn, "481 authentication failed\r\n")
					continue
				}
				fmt.Fprintf(conn, "281 authentication accepted\r\n")
			default:
				fmt.Fprintf(conn, "501 unknown AUTHINFO\r\n")
			}
		case "GROUP":
			g, ok := s.Groups[rest]
			if !ok {
				fmt.Fprintf(conn, "411 no such group\r\n")
				continue
			}
			fmt.Fprintf(conn, "211 %d %d %d %s\r\n", g.Count, g.First, g.Last, rest)
		case "XOVER":
			g, ok := s.currentGroup()
			if !ok || g.RejectXover {
				fmt.Fprintf(conn, "500 command not supported\r\n")
				continue
			}
			first, last := parseRange(rest)
			fmt.Fprintf(conn, "224 overview follows\r\n")
			for _, ov := range g.Overview {
				n := overviewArtnum(ov)
				if n < first || n > last {
					continue
				}
				writeDotStuffed(conn, ov)
			}
			fmt.Fprintf(conn, ".\r\n")
		case "HEAD":
			if flaky > 0 {
				flaky--
				fmt.Fprintf(conn, "503 try again\r\n")
				continue
			}
			g, ok := s.currentGroup()
			n, _ := strconv.ParseInt(rest, 10, 64)
			hdrs, have := g.Heads[n]
			if !ok || !have {
				fmt.Fprintf(conn, "423 no such article number\r\n")
				continue
			}
			fmt.Fprintf(conn, "221 %d headers follow\r\n", n)
			for _, h := range hdrs {
				writeDotStuffed(conn, h)
			}
			fmt.Fprintf(conn, ".\r\n")
		default:
			fmt.Fprintf(conn, "500 unknown command\r\n")
		}
	}
}

// currentGroup returns the single configured group. The fake server keeps no
// per-connection selection state; tests use one group at a time.
func (s *Server) currentGroup() (Group, bool) {
	for _, g := range s.Groups {
		return g, true
	}
	return Group{}, false
}

func parseRange(arg string) (int64, int64) {
	lo, hi, ok := strings.Cut(arg, "-")
	first, _ := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if !ok {
		return first, first
	}
	last, _ := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	return first, last
}

func overviewArtnum(line string) int64 {
	num, _, _ := strings.Cut(line, "\t")
	n, _ := strconv.ParseInt(num, 10, 64)
	return n
}

func writeDotStuffed(w net.Conn, line string) {
	if strings.HasPrefix(line, ".") {
		line = "." + line
	}
	fmt.Fprintf(w, "%s\r\n", line)
}
