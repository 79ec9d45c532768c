package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"

	contextutils "telugulearn/internal/utils"
)

// maskDatabaseURL hides credentials in a postgres URL for display
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return strings.Replace(u.String(), "://", "://***:***@", 1)
}

// getDatabaseInfo describes the connected database
func getDatabaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "Connected (unknown database)"
	}

	var host sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT inet_server_addr()::text").Scan(&host); err != nil || !host.Valid {
		return fmt.Sprintf("Connected to %s", dbName)
	}
	return fmt.Sprintf("Connected to %s on %s", dbName, host.String)
}

// tableCounts returns exact row counts for the named tables
func tableCounts(ctx context.Context, db *sql.DB, tables []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(table)
		if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}
