// migrate-to-postgres copies a SQLite game database into PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/bomzh.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user bomzh \
//	    -pg-password bomzh \
//	    -pg-database bomzh
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/database"
)

func main() {
	pgDefaults := database.DefaultPostgresConfig()

	sqlitePath := flag.String("sqlite", "data/bomzh.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", pgDefaults.Host, "PostgreSQL host")
	pgPort := flag.Int("pg-port", pgDefaults.Port, "PostgreSQL port")
	pgUser := flag.String("pg-user", pgDefaults.User, "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", pgDefaults.Database, "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", pgDefaults.SSLMode, "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Count rows without writing them")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	// Opening runs the schema migrations on both sides.
	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := pgDefaults
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
	dst, err := database.OpenWithConfig(database.Config{
		Driver:   string(database.DialectPostgres),
		Postgres: pg,
	})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	ctx := context.Background()
	var totalRows int64
	for _, table := range database.Tables {
		log.Printf("Migrating table: %s", table)
		count, err := database.CopyTable(ctx, src, dst, table, *dryRun)
		if err != nil {
			log.Fatalf("Failed to migrate %s: %v", table, err)
		}
		log.Printf("  Migrated %d rows", count)
		totalRows += count
	}

	if !*dryRun {
		if err := verifyPlayers(ctx, src, dst); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		log.Println("Verified every player is readable from PostgreSQL")
	}

	log.Println("====================================")
	log.Printf("Migration complete! Total rows migrated: %d", totalRows)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

// verifyPlayers reads every source player back through the target schema.
func verifyPlayers(ctx context.Context, src, dst *database.Database) error {
	players, err := src.ListPlayers(ctx)
	if err != nil {
		return err
	}
	copied, err := dst.ListPlayers(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(copied))
	for _, p := range copied {
		seen[p.ID] = true
	}
	for _, p := range players {
		if !seen[p.ID] {
			return fmt.Errorf("player %s missing after copy", p.ID)
		}
	}
	return nil
}
