package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"sql no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"pgx no rows", pgx.ErrNoRows, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.err)
			assert.Equal(t, tt.code, GetCode(mapped))
			assert.ErrorIs(t, mapped, tt.err)
		})
	}
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name  string
		pgErr *pgconn.PgError
		code  ErrorCode
		field string
	}{
		{
			"unique with detail",
			&pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (user_id)=(u1) already exists."},
			ErrCodeConflict, "user_id",
		},
		{
			"unique with column",
			&pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "email"},
			ErrCodeConflict, "email",
		},
		{
			"check violation",
			&pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "role", ConstraintName: "profiles_role_check"},
			ErrCodeValidation, "role",
		},
		{
			"not null",
			&pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "user_id"},
			ErrCodeValidation, "user_id",
		},
		{
			"admin shutdown",
			&pgconn.PgError{Code: pgerrcode.AdminShutdown},
			ErrCodeUnavailable, "",
		},
		{
			"connection failure",
			&pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			ErrCodeUnavailable, "",
		},
		{
			"syntax error",
			&pgconn.PgError{Code: pgerrcode.SyntaxError},
			ErrCodeInternal, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(fmt.Errorf("exec: %w", tt.pgErr))
			require.Equal(t, tt.code, GetCode(mapped))
			assert.Equal(t, tt.field, GetField(mapped))

			var pgErr *pgconn.PgError
			assert.True(t, errors.As(mapped, &pgErr))
		})
	}
}

func TestMapDBError_PassThrough(t *testing.T) {
	plain := errors.New("something else")
	assert.Equal(t, plain, MapDBError(plain))
}
