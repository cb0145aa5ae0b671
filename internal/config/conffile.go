package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"nntp2sql/internal/errs"
)

// Conf files are flat key=value text. Blank lines and lines starting with
// '#' or ';' are skipped; keys match case-insensitively and accept '-' in
// place of '_'.

// LoadFile merges the settings from path into r. Unknown keys are ignored so
// old files keep working.
func LoadFile(path string, r *IngestionRequest) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.New(errs.CodeConfig, "open conf %s: %v", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		applyKey(r, normalizeKey(key), strings.TrimSpace(val))
	}
	if err := sc.Err(); err != nil {
		return errs.New(errs.CodeConfig, "read conf %s: %v", path, err)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

func applyKey(r *IngestionRequest, key, val string) {
	switch key {
	case "host":
		r.Host = val
	case "port":
		r.Port = atoi(val)
	case "ssl":
		if atoi(val) != 0 {
			r.Mode = ModeTLS
		}
	case "starttls":
		if atoi(val) != 0 {
			r.Mode = ModeSTARTTLS
		}
	case "user":
		r.User = val
	case "pass":
		r.Pass = val
	case "db_type":
		r.DBType = val
	case "db_name":
		r.DBName = val
	case "db_host":
		r.DBHost = val
	case "db_port":
		r.DBPort = atoi(val)
	case "db_user":
		r.DBUser = val
	case "db_pass":
		r.DBPass = val
	case "group":
		r.Group = val
	case "xover":
		r.Xover = atoi(val) != 0
	case "limit":
		r.Limit = int64(atoi(val))
	case "workers":
		r.Workers = atoi(val)
	case "retries":
		r.Retries = atoi(val)
	case "upsert":
		r.Upsert = atoi(val) != 0
	case "progress_width":
		r.ProgressWidth = atoi(val)
	}
}

// WriteFile saves the request as a conf file, credentials included, so a
// saved run can be replayed as-is.
func WriteFile(path string, r *IngestionRequest) error {
	var b strings.Builder
	b.WriteString("# nntp2sql configuration\n")
	fmt.Fprintf(&b, "host=%s\n", r.Host)
	if r.Port != 0 {
		fmt.Fprintf(&b, "port=%d\n", r.Port)
	}
	fmt.Fprintf(&b, "ssl=%d\n", boolInt(r.Mode == ModeTLS))
	fmt.Fprintf(&b, "starttls=%d\n", boolInt(r.Mode == ModeSTARTTLS))
	if r.User != "" {
		fmt.Fprintf(&b, "user=%s\n", r.User)
	}
	if r.Pass != "" {
		fmt.Fprintf(&b, "pass=%s\n", r.Pass)
	}
	fmt.Fprintf(&b, "db_type=%s\n", r.DBType)
	fmt.Fprintf(&b, "db_name=%s\n", r.DBName)
	if r.DBHost != "" {
		fmt.Fprintf(&b, "db_host=%s\n", r.DBHost)
	}
	if r.DBPort != 0 {
		fmt.Fprintf(&b, "db_port=%d\n", r.DBPort)
	}
	if r.DBUser != "" {
		fmt.Fprintf(&b, "db_user=%s\n", r.DBUser)
	}
	if r.DBPass != "" {
		fmt.Fprintf(&b, "db_pass=%s\n", r.DBPass)
	}
	if r.Group != "" {
		fmt.Fprintf(&b, "group=%s\n", r.Group)
	}
	fmt.Fprintf(&b, "xover=%d\n", boolInt(r.Xover))
	fmt.Fprintf(&b, "limit=%d\n", r.Limit)
	fmt.Fprintf(&b, "workers=%d\n", r.Workers)
	fmt.Fprintf(&b, "retries=%d\n", r.Retries)
	fmt.Fprintf(&b, "upsert=%d\n", boolInt(r.Upsert))
	fmt.Fprintf(&b, "progress_width=%d\n", r.ProgressWidth)

	// The file may hold credentials; keep it private to the owner.
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return errs.New(errs.CodeConfig, "write conf %s: %v", path, err)
	}
	return nil
}

// atoi keeps the digit-prefix parsing the conf format always had.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
