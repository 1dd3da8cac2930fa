package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-admin/internal/db"
)

// migrate applies or rolls back the embedded schema migrations.
//
//	migrate up
//	migrate down -steps 2
//	migrate version
func main() {
	steps := flag.Int("steps", 1, "migrations to roll back with down")
	dsn := flag.String("database", "", "database url (defaults to DATABASE_URL)")
	flag.Parse()

	_ = godotenv.Load()
	url := *dsn
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		fail(fmt.Errorf("DATABASE_URL is required"))
	}

	m, err := db.NewMigrator(url)
	if err != nil {
		fail(err)
	}
	defer func() {
		_ = m.Close()
	}()

	switch cmd := flag.Arg(0); cmd {
	case "", "up":
		err = m.Up()
	case "down":
		err = m.Down(*steps)
	case "version":
	default:
		fail(fmt.Errorf("unknown command %q (want up, down or version)", cmd))
	}
	if err != nil {
		fail(err)
	}

	v, dirty, err := m.Version()
	if err != nil {
		fail(err)
	}
	fmt.Printf("schema version %d (dirty=%t)\n", v, dirty)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
