package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const schemaQuery = `SELECT table_name FROM information_schema.tables`

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func tableArgs() []driver.Value {
	args := make([]driver.Value, len(requiredTables))
	for i, t := range requiredTables {
		args[i] = t
	}
	return args
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name     string
		present  []string
		queryErr error
		wantErr  string
	}{
		{name: "all tables present", present: requiredTables},
		{name: "missing table", present: []string{"hands", "handsplayers", "hudcache", "sessionscache"}, wantErr: "insertlock table does not exist"},
		{name: "query failure", queryErr: errors.New("connection reset"), wantErr: "failed to check schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			expect := mock.ExpectQuery(schemaQuery).WithArgs(tableArgs()...)
			if tt.queryErr != nil {
				expect.WillReturnError(tt.queryErr)
			} else {
				rows := sqlmock.NewRows([]string{"table_name"})
				for _, name := range tt.present {
					rows.AddRow(name)
				}
				expect.WillReturnRows(rows)
			}

			err := ValidateSchema(context.Background(), db)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
