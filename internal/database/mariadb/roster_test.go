package mariadb

import (
	"context"
	"testing"
)

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"roster", true},
		{"school_roster_2026", true},
		{"_tmp", true},
		{"", false},
		{"2026roster", false},
		{"roster; DROP TABLE students", false},
		{"db.roster", false},
		{"roster`", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := validTableName(tc.name); got != tc.want {
				t.Errorf("validTableName(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestListRoster_RejectsTableName(t *testing.T) {
	p := &Pool{}
	if _, err := p.ListRoster(context.Background(), "roster--"); err == nil {
		t.Error("expected error for invalid table name")
	}
}

func TestNewPool_RequiresDSN(t *testing.T) {
	if _, err := NewPool(""); err == nil {
		t.Error("expected error for empty DSN")
	}
}
