// nntp2sql ingests newsgroup article headers into SQLite or MySQL.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"nntp2sql/internal/config"
	"nntp2sql/internal/db"
	"nntp2sql/internal/errs"
	"nntp2sql/internal/ingest"
	"nntp2sql/internal/logging"
)

func showUsageExamples() {
	fmt.Println("\n=== nntp2sql - Usage Examples ===")
	fmt.Println()
	fmt.Println("Ingest a group into a local SQLite file:")
	fmt.Println("  ./nntp2sql -host news.example.org -group misc.test -db-name news.db")
	fmt.Println()
	fmt.Println("Bulk overview fetch (XOVER, single session):")
	fmt.Println("  ./nntp2sql -host news.example.org -group misc.test -xover")
	fmt.Println()
	fmt.Println("Per-article HEAD with 8 workers, newest 5000 articles only:")
	fmt.Println("  ./nntp2sql -host news.example.org -group misc.test -workers 8 -limit 5000")
	fmt.Println()
	fmt.Println("Direct TLS with credentials (password prompted when omitted):")
	fmt.Println("  ./nntp2sql -host news.example.org -ssl -user reader -group misc.test")
	fmt.Println()
	fmt.Println("STARTTLS upgrade on the plain port:")
	fmt.Println("  ./nntp2sql -host news.example.org -starttls -user reader -group misc.test")
	fmt.Println()
	fmt.Println("MySQL backend, creating the database first:")
	fmt.Println("  ./nntp2sql -db-type mysql -db-host db.example.org -db-user ingest -db-pass pw \\")
	fmt.Println("             -db-name news -init-db -host news.example.org -group misc.test")
	fmt.Println()
	fmt.Println("Save the current options and replay them later:")
	fmt.Println("  ./nntp2sql -host news.example.org -group misc.test -write-conf run.conf")
	fmt.Println("  ./nntp2sql -conf run.conf")
	fmt.Println()
}

func main() {
	lg := logging.New()
	req := config.New()

	var (
		host     = flag.String("host", config.DefaultHost, "NNTP server hostname")
		port     = flag.Int("port", 0, "NNTP port (default: 119 plain, 563 with -ssl)")
		ssl      = flag.Bool("ssl", false, "Connect with TLS from the first byte")
		starttls = flag.Bool("starttls", false, "Upgrade the plain connection with STARTTLS")
		user     = flag.String("user", "", "NNTP username")
		pass     = flag.String("pass", "", "NNTP password (prompted when -user is set without -pass)")

		dbType = flag.String("db-type", "sqlite", "Database backend: sqlite or mysql/mariadb")
		dbName = flag.String("db-name", "nntp2sql.db", "Database name (file path for sqlite)")
		dbHost = flag.String("db-host", "localhost", "MySQL server host")
		dbPort = flag.Int("db-port", 3306, "MySQL server port")
		dbUser = flag.String("db-user", "", "MySQL user")
		dbPass = flag.String("db-pass", "", "MySQL password")

		group    = flag.String("group", "", "Newsgroup to ingest")
		xover    = flag.Bool("xover", false, "Bulk overview fetch instead of per-article HEAD")
		limit    = flag.Int64("limit", 0, "Only ingest the newest N articles")
		workers  = flag.Int("workers", 1, "HEAD worker sessions (1-64)")
		retries  = flag.Int("retries", 3, "HEAD retries per article (0-10)")
		upsert   = flag.Bool("upsert", true, "Insert rows missing at update time")
		initDB   = flag.Bool("init-db", false, "Create the MySQL database before connecting")
		createDB = flag.Bool("create-db", false, "Create database and schema, then exit")

		confPath      = flag.String("conf", "", "Load options from a key=value conf file")
		writeConf     = flag.String("write-conf", "", "Save the effective options to a conf file and exit")
		logPath       = flag.String("log", "", "Append log output to this file instead of stderr")
		verbose       = flag.Bool("verbose", false, "Log informational messages too")
		progressWidth = flag.Int("progress-width", config.DefaultProgressWidth, "Progress bar width (5-200)")
		showHelp      = flag.Bool("help", false, "Show usage examples and exit")
	)
	flag.Parse()
	if *showHelp {
		showUsageExamples()
		os.Exit(errs.CodeOK)
	}

	if *logPath != "" {
		if err := lg.OpenFile(*logPath); err != nil {
			fatal(lg, errs.Wrap(errs.CodeConfig, err))
		}
	}
	defer lg.Close()
	lg.SetVerbose(*verbose)

	if *confPath != "" {
		if err := config.LoadFile(*confPath, req); err != nil {
			fatal(lg, err)
		}
	}

	// Flags given on the command line win over conf file values.
	modeFromFlags := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			req.Host = *host
		case "port":
			req.Port = *port
		case "ssl", "starttls":
			modeFromFlags = true
		case "user":
			req.User = *user
		case "pass":
			req.Pass = *pass
		case "db-type":
			req.DBType = *dbType
		case "db-name":
			req.DBName = *dbName
		case "db-host":
			req.DBHost = *dbHost
		case "db-port":
			req.DBPort = *dbPort
		case "db-user":
			req.DBUser = *dbUser
		case "db-pass":
			req.DBPass = *dbPass
		case "group":
			req.Group = *group
		case "xover":
			req.Xover = *xover
		case "limit":
			req.Limit = *limit
		case "workers":
			req.Workers = *workers
		case "retries":
			req.Retries = *retries
		case "upsert":
			req.Upsert = *upsert
		case "progress-width":
			req.ProgressWidth = *progressWidth
		}
	})
	if modeFromFlags {
		if err := req.SetMode(*ssl, *starttls); err != nil {
			fatal(lg, err)
		}
	}
	req.InitDB = *initDB
	req.CreateDB = *createDB

	if *writeConf != "" {
		if err := config.WriteFile(*writeConf, req); err != nil {
			fatal(lg, err)
		}
		lg.Infof("configuration saved to %s", *writeConf)
		os.Exit(errs.CodeOK)
	}

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		fatal(lg, err)
	}

	if req.User != "" && req.Pass == "" {
		pw, err := promptPassword(req.User)
		if err != nil {
			fatal(lg, errs.Wrap(errs.CodeConfig, err))
		}
		req.Pass = pw
	}

	backend, err := db.ParseBackend(req.DBType)
	if err != nil {
		fatal(lg, errs.Wrap(errs.CodeConfig, err))
	}
	dbCfg := db.Config{
		Backend: backend,
		Path:    req.DBName,
		Host:    req.DBHost,
		Port:    req.DBPort,
		User:    req.DBUser,
		Pass:    req.DBPass,
		Name:    req.DBName,
		Upsert:  req.Upsert,
	}

	if req.InitDB || req.CreateDB {
		if err := db.CreateDatabase(dbCfg); err != nil {
			fatal(lg, err)
		}
	}
	store, err := db.Open(dbCfg, lg)
	if err != nil {
		fatal(lg, err)
	}
	if req.CreateDB {
		store.Close()
		lg.Infof("database and schema created")
		os.Exit(errs.CodeOK)
	}

	lg.Infof("ingesting: %s", req.Redacted())
	runErr := ingest.New(req, store, lg).Run()
	if err := store.Close(); err != nil {
		lg.Warnf("closing database: %v", err)
	}
	if runErr != nil {
		fatal(lg, runErr)
	}
}

// promptPassword reads the NNTP password from the terminal without echo.
func promptPassword(user string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("password for %s required and stdin is not a terminal", user)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", user)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func fatal(lg *logging.Logger, err error) {
	code := errs.Code(err)
	lg.Errorf("%s: %v", errs.Describe(code), err)
	lg.Close()
	os.Exit(code)
}
