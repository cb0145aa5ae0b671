package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nntp2sql/internal/errs"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*IngestionRequest)
		check    func(*testing.T, *IngestionRequest)
	}{
		{
			"plain port",
			func(r *IngestionRequest) { r.Port = 0 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Port != DefaultPort {
					t.Errorf("Port = %d, want %d", r.Port, DefaultPort)
				}
			},
		},
		{
			"tls port",
			func(r *IngestionRequest) { r.Mode = ModeTLS },
			func(t *testing.T, r *IngestionRequest) {
				if r.Port != DefaultTLSPort {
					t.Errorf("Port = %d, want %d", r.Port, DefaultTLSPort)
				}
			},
		},
		{
			"explicit port kept",
			func(r *IngestionRequest) { r.Port = 1119 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Port != 1119 {
					t.Errorf("Port = %d, want 1119", r.Port)
				}
			},
		},
		{
			"workers clamped high",
			func(r *IngestionRequest) { r.Workers = 1000 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Workers != MaxWorkers {
					t.Errorf("Workers = %d, want %d", r.Workers, MaxWorkers)
				}
			},
		},
		{
			"workers clamped low",
			func(r *IngestionRequest) { r.Workers = 0 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Workers != MinWorkers {
					t.Errorf("Workers = %d, want %d", r.Workers, MinWorkers)
				}
			},
		},
		{
			"retries clamped",
			func(r *IngestionRequest) { r.Retries = 99 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Retries != MaxRetries {
					t.Errorf("Retries = %d, want %d", r.Retries, MaxRetries)
				}
			},
		},
		{
			"progress width clamped",
			func(r *IngestionRequest) { r.ProgressWidth = 2 },
			func(t *testing.T, r *IngestionRequest) {
				if r.ProgressWidth != MinProgressWidth {
					t.Errorf("ProgressWidth = %d, want %d", r.ProgressWidth, MinProgressWidth)
				}
			},
		},
		{
			"negative limit zeroed",
			func(r *IngestionRequest) { r.Limit = -7 },
			func(t *testing.T, r *IngestionRequest) {
				if r.Limit != 0 {
					t.Errorf("Limit = %d, want 0", r.Limit)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			tt.mutate(r)
			r.ApplyDefaults()
			tt.check(t, r)
		})
	}
}

func TestSetMode(t *testing.T) {
	r := New()
	if err := r.SetMode(true, true); errs.Code(err) != errs.CodeConfig {
		t.Errorf("SetMode(ssl, starttls) error = %v, want config error", err)
	}
	if err := r.SetMode(true, false); err != nil || r.Mode != ModeTLS {
		t.Errorf("SetMode(ssl) = %v, mode %v", err, r.Mode)
	}
	if err := r.SetMode(false, true); err != nil || r.Mode != ModeSTARTTLS {
		t.Errorf("SetMode(starttls) = %v, mode %v", err, r.Mode)
	}
	if err := r.SetMode(false, false); err != nil || r.Mode != ModePlain {
		t.Errorf("SetMode() = %v, mode %v", err, r.Mode)
	}
}

func TestValidate(t *testing.T) {
	r := New()
	if errs.Code(r.Validate()) != errs.CodeArgs {
		t.Error("Validate without group did not fail with args error")
	}
	r.Group = "misc.test"
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	r.Group = ""
	r.CreateDB = true
	if err := r.Validate(); err != nil {
		t.Errorf("Validate create-db without group: %v", err)
	}
}

func TestConfFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.conf")
	r := New()
	r.Host = "news.example.org"
	r.Port = 563
	r.Mode = ModeTLS
	r.User = "reader"
	r.Pass = "s3cret"
	r.DBType = "mysql"
	r.DBName = "news"
	r.DBHost = "db.example.org"
	r.DBPort = 3307
	r.DBUser = "ingest"
	r.DBPass = "dbpass"
	r.Group = "misc.test"
	r.Xover = true
	r.Limit = 500
	r.Workers = 8
	r.Retries = 5
	r.Upsert = false
	r.ProgressWidth = 60
	if err := WriteFile(path, r); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := New()
	if err := LoadFile(path, got); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if *got != *r {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, r)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("conf file mode = %o, want 600", perm)
	}
}

func TestLoadFileLenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.conf")
	content := strings.Join([]string{
		"# comment",
		"; also a comment",
		"",
		"no equals sign here",
		"HOST = spaced.example.org",
		"Db-Type=mariadb",
		"unknown_key=whatever",
		"limit=250abc",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	r := New()
	if err := LoadFile(path, r); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r.Host != "spaced.example.org" {
		t.Errorf("Host = %q", r.Host)
	}
	if r.DBType != "mariadb" {
		t.Errorf("DBType = %q", r.DBType)
	}
	if r.Limit != 250 {
		t.Errorf("Limit = %d, want 250", r.Limit)
	}
}

func TestLoadFileMissing(t *testing.T) {
	r := New()
	err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"), r)
	if errs.Code(err) != errs.CodeConfig {
		t.Errorf("LoadFile missing = %v, want config error", err)
	}
}

func TestRedacted(t *testing.T) {
	r := New()
	r.Pass = "supersecret"
	if s := r.Redacted(); strings.Contains(s, "supersecret") {
		t.Errorf("Redacted leaked the password: %s", s)
	}
}
