// nntp2sql-export renders ingested groups as static HTML pages.
package main

import (
	"flag"
	"fmt"
	"os"

	"nntp2sql/internal/db"
	"nntp2sql/internal/errs"
	"nntp2sql/internal/export"
	"nntp2sql/internal/logging"
)

func showUsageExamples() {
	fmt.Println("\n=== nntp2sql-export - Usage Examples ===")
	fmt.Println()
	fmt.Println("Export one group to a single page:")
	fmt.Println("  ./nntp2sql-export -db-name news.db -group misc.test -out misc.test.html")
	fmt.Println()
	fmt.Println("Export one group paginated (misc.test-1.html, misc.test-2.html, ...):")
	fmt.Println("  ./nntp2sql-export -db-name news.db -group misc.test -out-dir ./html -page-size 200")
	fmt.Println()
	fmt.Println("Export several groups plus an index page:")
	fmt.Println("  ./nntp2sql-export -db-name news.db -groups-file groups.txt -out-dir ./html")
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

		group      = flag.String("group", "", "Group to export")
		out        = flag.String("out", "", "Output file for a single-page export")
		outDir     = flag.String("out-dir", ".", "Output directory for paginated or multi-group export")
		pageSize   = flag.Int("page-size", 0, "Articles per page; 0 exports one page")
		groupsFile = flag.String("groups-file", "", "File listing one group per line, exported with an index page")

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

	if *group == "" && *groupsFile == "" {
		fatal(lg, errs.New(errs.CodeArgs, "need -group or -groups-file"))
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

	exp := export.New(store, lg)
	switch {
	case *groupsFile != "":
		err = exp.GroupsFromFile(*groupsFile, *outDir)
	case *pageSize > 0:
		err = exp.GroupPaginated(*group, *outDir, *pageSize)
	default:
		path := *out
		if path == "" {
			path = *group + ".html"
		}
		err = exp.Group(*group, path)
	}
	if err != nil {
		fatal(lg, errs.Wrap(errs.CodeRuntime, err))
	}
}

func fatal(lg *logging.Logger, err error) {
	code := errs.Code(err)
	lg.Errorf("%s: %v", errs.Describe(code), err)
	lg.Close()
	os.Exit(code)
}
