// Command migrate applies the analysis store schema.
//
//	migrate [-dsn URL] up | down | steps N | version | force V
//
// Without -dsn the connection comes from the same config files and
// RANCOQC_DB_* variables the server reads.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/rancoqc/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

var errUsage = errors.New("usage: migrate [-dsn URL] up | down | steps N | version | force V")

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL URL; overrides config")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), errUsage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*dsn, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(dsn string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	if dsn == "" {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		dsn = cfg.URL()
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer m.Close()

	switch cmd := args[0]; cmd {
	case "up":
		return report(m, m.Up())
	case "down":
		return report(m, m.Down())
	case "steps", "force":
		if len(args) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		if cmd == "force" {
			return report(m, m.Force(n))
		}
		return report(m, m.Steps(n))
	case "version":
		return report(m, nil)
	default:
		return errUsage
	}
}

// report prints the resulting schema version. ErrNoChange is not a failure.
func report(m *migrate.Migrate, err error) error {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("schema: empty")
	case err != nil:
		return fmt.Errorf("version: %w", err)
	case dirty:
		fmt.Printf("schema: version %d (dirty, fix and run force)\n", v)
	default:
		fmt.Printf("schema: version %d\n", v)
	}
	return nil
}
