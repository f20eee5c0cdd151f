package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		rows [][]any
		want string
	}{
		{
			name: "empty rows",
			cfg:  UpsertConfig{Table: "ops", Columns: []string{"id"}, ConflictKeys: []string{"id"}},
		},
		{
			name: "no columns",
			cfg:  UpsertConfig{Table: "ops", ConflictKeys: []string{"id"}},
			rows: [][]any{{1}},
			want: "no columns specified",
		},
		{
			name: "no conflict keys",
			cfg:  UpsertConfig{Table: "ops", Columns: []string{"id"}},
			rows: [][]any{{1}},
			want: "no conflict keys specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := BulkUpsert(context.Background(), nil, tt.cfg, tt.rows)
			if tt.want == "" {
				require.NoError(t, err)
				assert.Equal(t, int64(0), n)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"run_id", "op_id", "volume_bbls"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_consolidated_operations"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_consolidated_operations"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "consolidated_operations"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "consolidated_operations",
		Columns:      cols,
		ConflictKeys: []string{"run_id", "op_id"},
	}, [][]any{{"r1", "op-00001", 10.0}, {"r1", "op-00002", 4.5}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_ops"}, []string{"id"}).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "ops",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for ops")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	got := upsertSQL("enrich.ops", "_tmp", []string{"run_id", "op_id", "volume"}, []string{"run_id", "op_id"}, []string{"volume"})
	assert.Equal(t,
		`INSERT INTO "enrich"."ops" ("run_id", "op_id", "volume") SELECT "run_id", "op_id", "volume" FROM "_tmp" ON CONFLICT ("run_id", "op_id") DO UPDATE SET "volume" = EXCLUDED."volume"`,
		got)

	got = upsertSQL("ops", "_tmp", []string{"id"}, []string{"id"}, nil)
	assert.Equal(t, `INSERT INTO "ops" ("id") SELECT "id" FROM "_tmp" ON CONFLICT ("id") DO NOTHING`, got)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, pgx.Identifier{"simple"}, identifier("simple"))
	assert.Equal(t, pgx.Identifier{"enrich", "records"}, identifier("enrich.records"))
	assert.Equal(t, `"enrich"."records"`, identifier("enrich.records").Sanitize())
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
