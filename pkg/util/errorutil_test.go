package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewConflict("user with this email already exists", nil))

	de := ToDomainError(wrapped)
	require.Equal(t, http.StatusConflict, de.HTTPStatus)
	require.Equal(t, "CONFLICT", de.Code)
}

func TestToDomainErrorMapsRepositoryErrors(t *testing.T) {
	notFound := ToDomainError(fmt.Errorf("get: %w", pgx.ErrNoRows))
	require.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	dup := ToDomainError(&pgconn.PgError{Code: "23505", ConstraintName: "waitlist_email_key"})
	require.Equal(t, http.StatusConflict, dup.HTTPStatus)

	other := ToDomainError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, other.HTTPStatus)
	require.Equal(t, "internal server error", other.Message)
}

func TestMapErrorNil(t *testing.T) {
	require.NoError(t, MapError(nil))
	require.Nil(t, ToDomainError(nil))
}
