package database

import (
	"database/sql"
	"fmt"
)

// requireRows wraps an Exec failure as "failed to <action>" and reports
// notFound when the statement matched no row.
func requireRows(result sql.Result, err error, action string, notFound error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("failed to %s: %w", action, affectedErr)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
