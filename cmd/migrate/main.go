// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mchestr/plex-maintenance-engine/internal/migration"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence/sqlite"
)

func main() {
	var (
		dbPath = flag.String("db", "plexmaint.db", "Path to the SQLite database file")
		force  = flag.Bool("force", false, "Re-record the schema revision even if already applied")
	)
	flag.Parse()

	if *dbPath == "" {
		fmt.Println("Error: --db is required")
		os.Exit(1)
	}

	fmt.Printf("Applying schema to %s\n", *dbPath)

	db, err := sqlite.Open(*dbPath, sqlite.DefaultConfig())
	if err != nil {
		fmt.Printf("failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if *force {
		if _, err := db.Exec(`DELETE FROM migration_history WHERE module = ?`, migration.ModuleSchemaV1); err != nil {
			fmt.Printf("failed to clear migration ledger: %v\n", err)
			os.Exit(1)
		}
	}

	if err := sqlite.Migrate(db); err != nil {
		fmt.Printf("migration failed: %v\n", err)
		os.Exit(1)
	}

	rec, err := migration.GetHistory(db, migration.ModuleSchemaV1)
	if err != nil {
		fmt.Printf("failed to read migration ledger: %v\n", err)
		os.Exit(1)
	}
	if rec != nil {
		fmt.Printf("schema revision %q applied at %d\n", rec.Module, rec.MigratedAtMs)
	}

	fmt.Println("migration complete")
}
