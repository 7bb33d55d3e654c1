package db

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandama/touken-west-sub001/internal/sword"
)

func setupSwordStore(t *testing.T) (*SwordStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewSwordStore(&DB{DB: sqlDB}), mock
}

func TestBuildSwordWhere_Empty(t *testing.T) {
	w := buildSwordWhere(sword.Query{})
	assert.Empty(t, w.String())
	assert.Empty(t, w.args)
}

func TestBuildSwordWhere(t *testing.T) {
	hasMedia := true
	w := buildSwordWhere(sword.Query{
		Search:         []string{`7 "a.b"`},
		Exact:          map[string]string{"Type": "Katana", "Bogus": "x"},
		Authentication: "juyo",
		HasMedia:       &hasMedia,
	})

	ors := func(param string) string {
		parts := make([]string, 0, len(sword.SearchFields))
		for _, f := range sword.SearchFields {
			parts = append(parts, "doc->>'"+f+"' ~* "+param)
		}
		return strings.Join(parts, " OR ")
	}

	want := " WHERE (" + ors("$1") + " OR sword_index = $2)" +
		" AND (" + ors("$3") + ")" +
		" AND doc->>'Type' = $4" +
		" AND doc->>'Authentication' ~* $5" +
		" AND COALESCE(doc->>'MediaAttachments', '') NOT IN ($6, $7, $8)"
	assert.Equal(t, want, w.String())
	assert.Equal(t, []any{"7", "7", `\ya\.b\y`, "Katana", "juyo", "NA", "[]", ""}, w.args)
}

func TestBuildSwordWhere_WithoutMedia(t *testing.T) {
	hasMedia := false
	w := buildSwordWhere(sword.Query{HasMedia: &hasMedia})
	assert.Equal(t, " WHERE COALESCE(doc->>'MediaAttachments', '') IN ($1, $2, $3)", w.String())
}

func TestSwordStore_Search(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM swords WHERE doc->>'School' = \$1`).
		WithArgs("Soshu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT doc FROM swords WHERE doc->>'School' = \$1 ORDER BY sword_index LIMIT \$2 OFFSET \$3`).
		WithArgs("Soshu", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"Index":"3","MediaAttachments":"[a]"}`)))

	got, err := store.Search(context.Background(), sword.Query{
		Exact: map[string]string{"School": "Soshu"},
		Page:  2,
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Total)
	require.Len(t, got.Swords, 1)
	assert.Equal(t, "[a]", got.Swords[0][sword.FieldMedia])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_Search_DefaultsPaging(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM swords$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT doc FROM swords ORDER BY sword_index LIMIT \$1 OFFSET \$2`).
		WithArgs(sword.DefaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	got, err := store.Search(context.Background(), sword.Query{})
	require.NoError(t, err)
	assert.NotNil(t, got.Swords)
	assert.Empty(t, got.Swords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_FindByIndex(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`WHERE sword_index = \$1`).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"Index":"7"}`)))
	mock.ExpectQuery(`WHERE sword_index = \$1`).
		WithArgs("8").
		WillReturnError(sql.ErrNoRows)

	got, err := store.FindByIndex(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", got[sword.FieldIndex])

	_, err = store.FindByIndex(context.Background(), "8")
	assert.ErrorIs(t, err, sword.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_Create(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`INSERT INTO swords`).
		WithArgs([]byte(`{"Smith":"Go"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"Index":"12","Smith":"Go"}`)))

	got, err := store.Create(context.Background(), sword.Sword{"Index": "99", "Smith": "Go"})
	require.NoError(t, err)
	assert.Equal(t, "12", got[sword.FieldIndex])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_Create_Duplicate(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`INSERT INTO swords`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := store.Create(context.Background(), sword.Sword{"Smith": "Go"})
	assert.ErrorIs(t, err, sword.ErrDuplicate)
}

func TestSwordStore_Update(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`UPDATE swords SET doc = doc \|\| \$1::jsonb WHERE sword_index = \$2 RETURNING doc`).
		WithArgs([]byte(`{"Smith":"Go"}`), "4").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"Index":"4","Smith":"Go"}`)))
	mock.ExpectQuery(`UPDATE swords`).
		WithArgs([]byte(`{"Smith":"Go"}`), "5").
		WillReturnError(sql.ErrNoRows)

	got, err := store.Update(context.Background(), "4", sword.Sword{"Index": "9", "Smith": "Go"})
	require.NoError(t, err)
	assert.Equal(t, "Go", got["Smith"])

	_, err = store.Update(context.Background(), "5", sword.Sword{"Smith": "Go"})
	assert.ErrorIs(t, err, sword.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_Delete(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectExec(`DELETE FROM swords WHERE sword_index = \$1`).
		WithArgs("4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM swords WHERE sword_index = \$1`).
		WithArgs("5").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "4"))
	assert.ErrorIs(t, store.Delete(context.Background(), "5"), sword.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwordStore_Distinct(t *testing.T) {
	store, mock := setupSwordStore(t)

	mock.ExpectQuery(`SELECT DISTINCT doc->>\$1 FROM swords WHERE doc->>\$1 IS NOT NULL`).
		WithArgs("School").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("Soshu").AddRow("Bizen"))

	got, err := store.Distinct(context.Background(), "School")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Soshu", "Bizen"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
