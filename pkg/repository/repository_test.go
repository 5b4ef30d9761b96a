package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/folio/pkg/repository"
)

var (
	errNotFound  = errors.New("document not found")
	errDuplicate = errors.New("document already exists")
	errInvalid   = errors.New("invalid document")
)

func TestErrorMap(t *testing.T) {
	full := repository.ErrorMap{
		NotFound:  errNotFound,
		Duplicate: errDuplicate,
		Invalid:   errInvalid,
	}
	other := errors.New("connection reset")

	tests := []struct {
		name    string
		m       repository.ErrorMap
		err     error
		want    error
		wantMsg string
	}{
		{name: "nil", m: full, err: nil, want: nil},
		{name: "no rows", m: full, err: sql.ErrNoRows, want: errNotFound},
		{
			name:    "unique violation",
			m:       full,
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "documents_storage_key_key"},
			want:    errDuplicate,
			wantMsg: "document already exists (documents_storage_key_key)",
		},
		{
			name:    "check violation",
			m:       full,
			err:     &pgconn.PgError{Code: "23514", ConstraintName: "documents_page_count_check"},
			want:    errInvalid,
			wantMsg: "invalid document (documents_page_count_check)",
		},
		{name: "not null without constraint", m: full, err: &pgconn.PgError{Code: "23502"}, want: errInvalid, wantMsg: "invalid document"},
		{name: "foreign key", m: full, err: &pgconn.PgError{Code: "23503"}, want: errInvalid},
		{name: "other pg error", m: full, err: &pgconn.PgError{Code: "40001"}},
		{name: "unmapped invalid", m: repository.ErrorMap{NotFound: errNotFound}, err: &pgconn.PgError{Code: "23514"}},
		{name: "passthrough", m: full, err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Map(tt.err)

			if tt.err == nil {
				if got != nil {
					t.Fatalf("Map(nil) = %v, want nil", got)
				}
				return
			}

			want := tt.want
			if want == nil {
				want = tt.err
			}
			if !errors.Is(got, want) {
				t.Errorf("Map() = %v, want %v", got, want)
			}
			if tt.wantMsg != "" && got.Error() != tt.wantMsg {
				t.Errorf("message: got %q, want %q", got.Error(), tt.wantMsg)
			}
		})
	}
}

type result struct {
	rows int64
	err  error
}

func (r result) LastInsertId() (int64, error) { return 0, nil }
func (r result) RowsAffected() (int64, error) { return r.rows, r.err }

type executor struct {
	res   sql.Result
	err   error
	query string
	args  []any
}

func (e *executor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.query, e.args = query, args
	return e.res, e.err
}

func TestExecExpectOne(t *testing.T) {
	execErr := errors.New("exec failed")
	countErr := errors.New("rows affected unsupported")

	tests := []struct {
		name string
		exec *executor
		want error
	}{
		{"one row", &executor{res: result{rows: 1}}, nil},
		{"no rows", &executor{res: result{rows: 0}}, sql.ErrNoRows},
		{"exec error", &executor{err: execErr}, execErr},
		{"count error", &executor{res: result{err: countErr}}, countErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repository.ExecExpectOne(context.Background(), tt.exec, "DELETE FROM documents WHERE id = $1", "abc")
			if !errors.Is(err, tt.want) {
				t.Errorf("ExecExpectOne() = %v, want %v", err, tt.want)
			}
			if !strings.HasPrefix(tt.exec.query, "DELETE FROM documents") || len(tt.exec.args) != 1 {
				t.Errorf("executed %q with %v", tt.exec.query, tt.exec.args)
			}
		})
	}
}
