package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"course-portal/internal/catalog"
	"course-portal/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return bun.NewDB(sqldb, pgdialect.New()), mock
}

func TestProfileStore_Get(t *testing.T) {
	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		queryErr error
		want     string
		wantErr  error
	}{
		{
			name: "found",
			rows: sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"email":"a@x.com"}`)),
			want: `{"email":"a@x.com"}`,
		},
		{
			name:    "missing row",
			rows:    sqlmock.NewRows([]string{"data"}),
			wantErr: domain.ErrProfileNotFound,
		},
		{
			name:     "driver failure",
			queryErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewProfileStore(db)

			expect := mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM profiles WHERE email = 'a@x.com'`))
			if tt.queryErr != nil {
				expect.WillReturnError(tt.queryErr)
			} else {
				expect.WillReturnRows(tt.rows)
			}

			got, err := store.Get(context.Background(), "a@x.com")
			switch {
			case tt.queryErr != nil:
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrProfileNotFound)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(got))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileStore_Put(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProfileStore(db)
	store.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO profiles (email, data, updated_at) VALUES ('a@x.com', '{"email":"a@x.com"}'::jsonb`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), "a@x.com", json.RawMessage(`{"email":"a@x.com"}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_PutError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProfileStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO profiles`)).WillReturnError(errors.New("disk full"))

	err := store.Put(context.Background(), "a@x.com", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert profile")
}

func TestSeedCourses(t *testing.T) {
	db, mock := newMockDB(t)
	courses := catalog.Default().Courses()

	for _, course := range courses {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO courses (id, data) VALUES ('` + course.ID + `'`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, SeedCourses(context.Background(), db, courses))
	assert.NoError(t, mock.ExpectationsWereMet())
}
