package database

import (
	"strings"
)

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders to dialect-specific placeholders.
//
//	input:    "SELECT * FROM players WHERE id = ? AND level > ?"
//	SQLite:   unchanged
//	Postgres: "SELECT * FROM players WHERE id = $1 AND level > $2"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}

// Insert returns "INSERT INTO table (a, b) VALUES (?, ?)" for the columns.
func (qb *QueryBuilder) Insert(table string, columns []string) string {
	return qb.Build("INSERT INTO " + table + " (" + strings.Join(columns, ", ") +
		") VALUES (" + placeholders(len(columns)) + ")")
}

// Update returns "UPDATE table SET a = ?, b = ? WHERE <where>". The where
// clause may hold further ? placeholders, which follow the SET values.
func (qb *QueryBuilder) Update(table string, columns []string, where string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	return qb.Build("UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + where)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
