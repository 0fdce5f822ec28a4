package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name: "pgx duplicate key",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "ux_contributions_checkout_session"},
			want: true,
		},
		{
			name:       "pgx duplicate key matching constraint",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "ux_contributions_checkout_session"},
			constraint: "ux_contributions_checkout_session",
			want:       true,
		},
		{
			name:       "pgx duplicate key other constraint",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "contributions_pkey"},
			constraint: "ux_contributions_checkout_session",
			want:       false,
		},
		{
			name: "pgx other integrity violation",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
		{
			name: "pq duplicate key",
			err:  &pq.Error{Code: "23505", Constraint: "contributions_pkey"},
			want: true,
		},
		{
			name: "wrapped pgx duplicate key",
			err:  fmt.Errorf("creating contribution: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "translated gorm duplicate key",
			err:  gorm.ErrDuplicatedKey,
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}
