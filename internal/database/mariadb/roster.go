package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// DefaultRosterTable is the table read when no other is configured
const DefaultRosterTable = "roster"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// RosterEntry is one student row of the roster
type RosterEntry struct {
	StudentID string
	FirstName string
	LastName  string
	GroupName string // empty when the student has no class
	PhotoPath string // empty when no reference photo is on file
}

// validTableName reports whether name can be used as an unquoted table identifier.
func validTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// ListRoster returns the roster ordered by student ID.
// Rows with an empty student ID are skipped.
func (p *Pool) ListRoster(ctx context.Context, table string) ([]RosterEntry, error) {
	if table == "" {
		table = DefaultRosterTable
	}
	if !validTableName(table) {
		return nil, fmt.Errorf("invalid roster table name %q", table)
	}

	query := fmt.Sprintf(`
		SELECT student_id, first_name, last_name, group_name, photo_path
		FROM %s
		ORDER BY student_id`, table)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var entries []RosterEntry
	for rows.Next() {
		var e RosterEntry
		var group, photo sql.NullString
		if err := rows.Scan(&e.StudentID, &e.FirstName, &e.LastName, &group, &photo); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		e.StudentID = strings.TrimSpace(e.StudentID)
		if e.StudentID == "" {
			continue
		}
		e.GroupName = strings.TrimSpace(group.String)
		e.PhotoPath = strings.TrimSpace(photo.String)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return entries, nil
}
