// nntp2sql-web serves a read-only browser over an ingested database.
package main

import (
	"flag"
	"fmt"
	"os"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"nntp2sql/internal/db"
	"nntp2sql/internal/errs"
	"nntp2sql/internal/logging"
	"nntp2sql/internal/web"
)

var Prof *prof.Profiler

func showUsageExamples() {
	fmt.Println("\n=== nntp2sql-web - Usage Examples ===")
	fmt.Println()
	fmt.Println("Browse a local SQLite database:")
	fmt.Println("  ./nntp2sql-web -db-name news.db -listen :8080")
	fmt.Println()
	fmt.Println("With HTTP basic auth (hash made with any bcrypt tool):")
	fmt.Println("  ./nntp2sql-web -db-name news.db -auth 'admin:$2a$10$...'")
	fmt.Println()
	fmt.Println("With a pprof endpoint for profiling:")
	fmt.Println("  ./nntp2sql-web -db-name news.db -pprof :51111")
	fmt.Println()
}

func main() {
	lg := logging.New()
	var (
		dbType = flag.String("db-type", "sqlite", "Database backend: sqlite or mysql/mariadb")
		dbName = flag.String("db-name", "nntp2sql.db", "Database name (file path for sqlite)")
		dbHost = flag.String("db-host", "localhost", "MySQL server host")
		dbPort = flag.Int("db-port", 3306, "MySQL server port")
		dbUser = flag.String("db-user", "", "MySQL user")
		dbPass = flag.String("db-pass", "", "MySQL password")

		listen    = flag.String("listen", ":8080", "HTTP listen address")
		authSpec  = flag.String("auth", "", "Require basic auth, given as user:bcrypt-hash")
		pprofAddr = flag.String("pprof", "", "Serve pprof on this address")

		logPath  = flag.String("log", "", "Append log output to this file instead of stderr")
		verbose  = flag.Bool("verbose", false, "Log informational messages too")
		showHelp = flag.Bool("help", false, "Show usage examples and exit")
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

	if *pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(*pprofAddr)
	}

	backend, err := db.ParseBackend(*dbType)
	if err != nil {
		fatal(lg, errs.Wrap(errs.CodeConfig, err))
	}
	store, err := db.Open(db.Config{
		Backend: backend,
		Path:    *dbName,
		Host:    *dbHost,
		Port:    *dbPort,
		User:    *dbUser,
		Pass:    *dbPass,
		Name:    *dbName,
	}, lg)
	if err != nil {
		fatal(lg, err)
	}
	defer store.Close()

	srv, err := web.NewServer(store, lg, *authSpec)
	if err != nil {
		fatal(lg, err)
	}
	if err := srv.Run(*listen); err != nil {
		fatal(lg, errs.Wrap(errs.CodeRuntime, err))
	}
}

func fatal(lg *logging.Logger, err error) {
	code := errs.Code(err)
	lg.Errorf("%s: %v", errs.Describe(code), err)
	lg.Close()
	os.Exit(code)
}
