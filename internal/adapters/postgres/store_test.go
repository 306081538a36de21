package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, "samples"), mock
}

func sampleRows(samples ...*domain.Sample) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "ts", "lat", "lng", "altitude", "temperature", "pressure", "direction", "line_tracking",
	})
	for _, s := range samples {
		var alt any
		if s.Altitude != nil {
			alt = *s.Altitude
		}
		var lt any
		if s.LineTracking != nil {
			lt = *s.LineTracking
		}
		rows.AddRow(s.ID, s.Timestamp, s.Lat, s.Lng, alt, s.Temperature, s.Pressure, s.Direction, lt)
	}
	return rows
}

func TestInsertAssignsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO samples (id, ts, lat, lng, altitude, temperature, pressure, direction, line_tracking) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 19.24, -103.7,
			sqlmock.AnyArg(), 25.4, 1013.2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := store.Insert(context.Background(), &domain.Sample{
		Timestamp: time.Now(), Lat: 19.24, Lng: -103.7,
		Temperature: 25.4, Pressure: 1013.2,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("insert should assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, ts, lat, lng, altitude, temperature, pressure, direction, line_tracking FROM samples WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sampleRows())

	_, err := store.FindByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindPassesPaginationAndSearch(t *testing.T) {
	store, mock := newMockStore(t)

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM samples WHERE .* ORDER BY ts DESC LIMIT .* OFFSET").
		WithArgs("left", int64(10), int64(10)).
		WillReturnRows(sampleRows(&domain.Sample{
			ID: "a", Timestamp: ts, Lat: 1, Lng: 2,
			Temperature: 3, Pressure: 4, Direction: "left",
		}))

	got, err := store.Find(context.Background(), ports.ListQuery{Page: 2, Limit: 10, Search: "left"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Direction != "left" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM samples").
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := store.Count(context.Background(), ports.ListQuery{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected count 42, got %d", n)
	}
}

func TestUpdateByIDReturnsUpdatedRow(t *testing.T) {
	store, mock := newMockStore(t)

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("UPDATE samples SET .* WHERE id = .* RETURNING").
		WithArgs(20.0, -104.0, sqlmock.AnyArg(), 26.1, 1010.0, sqlmock.AnyArg(), sqlmock.AnyArg(), "a").
		WillReturnRows(sampleRows(&domain.Sample{
			ID: "a", Timestamp: ts, Lat: 20.0, Lng: -104.0,
			Temperature: 26.1, Pressure: 1010.0, Direction: "up",
		}))

	got, err := store.UpdateByID(context.Background(), "a", domain.Update{
		Lat: 20.0, Lng: -104.0, Temperature: 26.1, Pressure: 1010.0, Direction: "up",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != "a" || !got.Timestamp.Equal(ts) {
		t.Fatalf("id/timestamp must come back unchanged: %+v", got)
	}
}

func TestUpdateByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE samples SET").
		WillReturnRows(sampleRows())

	_, err := store.UpdateByID(context.Background(), "missing", domain.Update{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM samples WHERE id = $1")).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM samples WHERE id = $1")).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := store.DeleteByID(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteByID(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestScanSampleOptionalFields(t *testing.T) {
	store, mock := newMockStore(t)

	alt := 420.5
	lt := true
	ts := time.Now()
	mock.ExpectQuery("SELECT .* FROM samples WHERE id = ").
		WithArgs("a").
		WillReturnRows(sampleRows(&domain.Sample{
			ID: "a", Timestamp: ts, Lat: 1, Lng: 2,
			Altitude: &alt, Temperature: 3, Pressure: 4, LineTracking: &lt,
		}))

	got, err := store.FindByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Altitude == nil || *got.Altitude != alt {
		t.Fatalf("altitude not scanned: %+v", got)
	}
	if got.LineTracking == nil || !*got.LineTracking {
		t.Fatalf("lineTracking not scanned: %+v", got)
	}
}
