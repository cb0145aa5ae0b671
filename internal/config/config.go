// Package config holds the ingestion request shared by the CLI, the config
// file loader and the orchestrator.
package config

import (
	"fmt"

	"nntp2sql/internal/errs"
)

// TransportMode selects how the NNTP session is secured.
type TransportMode int

const (
	ModePlain TransportMode = iota
	ModeTLS
	ModeSTARTTLS
)

func (m TransportMode) String() string {
	switch m {
	case ModeTLS:
		return "tls"
	case ModeSTARTTLS:
		return "starttls"
	}
	return "plain"
}

// Limits applied by ApplyDefaults.
const (
	MinWorkers = 1
	MaxWorkers = 64

	MinRetries = 0
	MaxRetries = 10

	MinProgressWidth     = 5
	MaxProgressWidth     = 200
	DefaultProgressWidth = 40

	DefaultHost    = "localhost"
	DefaultPort    = 119
	DefaultTLSPort = 563
)

// IngestionRequest is everything one ingestion run needs. The CLI and the
// conf file populate it; ApplyDefaults and Validate normalize it.
type IngestionRequest struct {
	Host string
	Port int
	Mode TransportMode
	User string
	Pass string

	DBType string
	DBName string
	DBHost string
	DBPort int
	DBUser string
	DBPass string

	Group string

	// Xover switches to single-threaded bulk overview fetching. Default is
	// per-article HEAD through the worker pool.
	Xover bool
	// Limit restricts ingestion to the newest N articles when positive.
	Limit   int64
	Workers int
	Retries int
	Upsert  bool

	// InitDB creates the MySQL database before connecting. CreateDB
	// additionally stops after provisioning the schema.
	InitDB   bool
	CreateDB bool

	ProgressWidth int
}

// New returns a request with the documented defaults filled in.
func New() *IngestionRequest {
	return &IngestionRequest{
		Host:          DefaultHost,
		DBType:        "sqlite",
		DBName:        "nntp2sql.db",
		DBHost:        "localhost",
		DBPort:        3306,
		Workers:       1,
		Retries:       3,
		Upsert:        true,
		ProgressWidth: DefaultProgressWidth,
	}
}

// ApplyDefaults fills the port from the transport mode and clamps the
// numeric knobs into their documented ranges.
func (r *IngestionRequest) ApplyDefaults() {
	if r.Host == "" {
		r.Host = DefaultHost
	}
	if r.Port == 0 {
		if r.Mode == ModeTLS {
			r.Port = DefaultTLSPort
		} else {
			r.Port = DefaultPort
		}
	}
	r.Workers = clamp(r.Workers, MinWorkers, MaxWorkers)
	r.Retries = clamp(r.Retries, MinRetries, MaxRetries)
	r.ProgressWidth = clamp(r.ProgressWidth, MinProgressWidth, MaxProgressWidth)
	if r.Limit < 0 {
		r.Limit = 0
	}
}

// Validate rejects contradictory or incomplete requests.
func (r *IngestionRequest) Validate() error {
	if r.Group == "" && !r.CreateDB {
		return errs.New(errs.CodeArgs, "no group given")
	}
	if r.DBType == "" {
		return errs.New(errs.CodeConfig, "no database type given")
	}
	if r.Port < 0 || r.Port > 65535 {
		return errs.New(errs.CodeConfig, "port %d out of range", r.Port)
	}
	return nil
}

// SetMode translates the ssl/starttls flag pair. Both at once contradict
// each other.
func (r *IngestionRequest) SetMode(ssl, starttls bool) error {
	if ssl && starttls {
		return errs.New(errs.CodeConfig, "ssl and starttls are mutually exclusive")
	}
	switch {
	case ssl:
		r.Mode = ModeTLS
	case starttls:
		r.Mode = ModeSTARTTLS
	default:
		r.Mode = ModePlain
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Redacted renders the request for logging with credentials hidden.
func (r *IngestionRequest) Redacted() string {
	pass := ""
	if r.Pass != "" {
		pass = "***"
	}
	return fmt.Sprintf("host=%s port=%d mode=%s user=%s pass=%s db=%s group=%s xover=%v limit=%d workers=%d retries=%d upsert=%v",
		r.Host, r.Port, r.Mode, r.User, pass, r.DBType, r.Group, r.Xover, r.Limit, r.Workers, r.Retries, r.Upsert)
}
