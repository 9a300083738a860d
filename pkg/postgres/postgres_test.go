package postgres

import (
	"context"
	"errors"
	"testing"
)

func TestCheckReadOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{name: "select", query: "SELECT device_name, MAX(temperature) FROM telemetry GROUP BY device_name;", want: "SELECT device_name, MAX(temperature) FROM telemetry GROUP BY device_name", ok: true},
		{name: "lower case with", query: "  with t as (select 1) select * from t ", want: "with t as (select 1) select * from t", ok: true},
		{name: "parenthesised", query: "(SELECT 1)", ok: false},
		{name: "select paren", query: "SELECT(1)", want: "SELECT(1)", ok: true},
		{name: "delete", query: "DELETE FROM telemetry", ok: false},
		{name: "stacked", query: "SELECT 1; DROP TABLE telemetry", ok: false},
		{name: "empty", query: " ;; ", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CheckReadOnly(tt.query)
			if !tt.ok {
				if !errors.Is(err, ErrNotReadOnly) {
					t.Fatalf("CheckReadOnly(%q) error = %v, want ErrNotReadOnly", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckReadOnly(%q) error = %v", tt.query, err)
			}
			if got != tt.want {
				t.Fatalf("CheckReadOnly(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (&Config{DSN: "postgres://u:p@localhost:5432/db", MaxRows: 10}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := (&Config{MaxRows: 10}).Validate(); err == nil {
		t.Fatal("Validate() error = nil, want missing dsn")
	}
	if err := (&Config{DSN: "postgres://localhost/db"}).Validate(); err == nil {
		t.Fatal("Validate() error = nil, want non-positive max rows")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("New() error = nil, want config error")
	}
}
