package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresDialect implements Dialect for the lib/pq driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// Placeholder returns "$N" for the given position.
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// InitStatements returns nothing: foreign keys are always enforced.
func (d *PostgresDialect) InitStatements() []string {
	return nil
}

// IsDuplicateKeyError returns true if the error is a PostgreSQL unique violation.
func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

func (d *PostgresDialect) LockClause() string {
	return " FOR UPDATE"
}

func (d *PostgresDialect) MaxOpenConns() int {
	return 0
}
