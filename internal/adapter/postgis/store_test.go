package postgis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

const sourceFile = "OR_ABI-L2-FDCF-M6_G16_s20250320000205_e20250320009513_c20250320010075.nc"

var insertRe = regexp.QuoteMeta("INSERT INTO goes16.goes")

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(sqlx.NewDb(db, "pgx"), logger), mock
}

func detection(lon, lat float64) domain.Detection {
	geom := domain.PointEWKT(lon, lat)
	return domain.Detection{
		TempKelvin:   312.35,
		AreaM2:       1234.57,
		PowerMW:      12.35,
		FileDatetime: time.Date(2025, 1, 31, 21, 0, 20, 0, time.FixedZone("-03", -3*3600)),
		Geom:         &geom,
		ObtainedAt:   time.Date(2025, 2, 1, 0, 15, 0, 0, time.UTC),
		SourceFile:   sourceFile,
	}
}

func TestStore_LoadBatch_InsertsAndSkipsDuplicates(t *testing.T) {
	store, mock := newMockStore(t)
	fresh := detection(-47.5, -15.5)
	dup := detection(-60.25, -3.75)

	mock.ExpectBegin()
	mock.ExpectQuery(insertRe).
		WithArgs(fresh.TempKelvin, fresh.AreaM2, fresh.PowerMW, fresh.FileDatetime, *fresh.Geom, fresh.ObtainedAt, sourceFile).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectQuery(insertRe).
		WithArgs(dup.TempKelvin, dup.AreaM2, dup.PowerMW, dup.FileDatetime, *dup.Geom, dup.ObtainedAt, sourceFile).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	stats, err := store.LoadBatch(context.Background(), []domain.Detection{fresh, dup})
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStats{Written: 1, Duplicates: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadBatch_NullGeometry(t *testing.T) {
	store, mock := newMockStore(t)
	d := detection(0, 0)
	d.Geom = nil

	mock.ExpectBegin()
	mock.ExpectQuery(insertRe).
		WithArgs(d.TempKelvin, d.AreaM2, d.PowerMW, d.FileDatetime, nil, d.ObtainedAt, sourceFile).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	stats, err := store.LoadBatch(context.Background(), []domain.Detection{d})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadBatch_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertRe).WillReturnError(errors.New("relation goes16.goes does not exist"))
	mock.ExpectRollback()

	_, err := store.LoadBatch(context.Background(), []domain.Detection{detection(-47.5, -15.5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadBatch_BeginFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := store.LoadBatch(context.Background(), []domain.Detection{detection(-47.5, -15.5)})
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadBatch_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	stats, err := store.LoadBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CheckReadiness(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := NewStore(sqlx.NewDb(db, "pgx"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectPing().WillReturnError(errors.New("database is starting up"))
	assert.Error(t, store.CheckReadiness(context.Background()))

	mock.ExpectPing()
	assert.NoError(t, store.CheckReadiness(context.Background()))
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := embedMigrations.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "00001_create_goes.sql", entries[0].Name())

	body, err := embedMigrations.ReadFile("migrations/00001_create_goes.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "geometry(Point, 4674)")
}
