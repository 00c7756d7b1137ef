package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	stmts := []string{"CREATE TABLE a (id NUMBER)", "CREATE TABLE b (id NUMBER)", "CREATE INDEX c ON b (id)"}
	mock.ExpectExec(regexp.QuoteMeta(stmts[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(stmts[1])).WillReturnError(errors.New("ORA-00955: name is already used"))

	err = ApplySchema(context.Background(), db, stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.Contains(t, err.Error(), "ORA-00955")
	assert.NoError(t, mock.ExpectationsWereMet())
}
