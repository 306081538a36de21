package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Config locates the sample table.
type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// Store implements ports.SampleStore on PostgreSQL. IDs are UUIDs assigned
// at insert time; the table name comes from config so deployments can
// share a database.
type Store struct {
	db    *sql.DB
	table string
}

const sampleColumns = "id, ts, lat, lng, altitude, temperature, pressure, direction, line_tracking"

func New(db *sql.DB, table string) *Store {
	return &Store{db: db, table: table}
}

// Open dials the database and pings it so a dead store fails at boot.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return New(db, cfg.Table), nil
}

func (s *Store) Insert(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
	stored := *sample
	stored.ID = uuid.NewString()

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)",
		s.table, sampleColumns)
	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.Timestamp, stored.Lat, stored.Lng,
		nullFloat(stored.Altitude), stored.Temperature, stored.Pressure,
		nullString(stored.Direction), nullBool(stored.LineTracking))
	if err != nil {
		return nil, fmt.Errorf("postgres insert: %w", err)
	}
	return &stored, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Sample, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", sampleColumns, s.table)
	sample, err := scanSample(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres find: %w", err)
	}
	return sample, nil
}

func (s *Store) Find(ctx context.Context, q ports.ListQuery) ([]*domain.Sample, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE ($1 = '' OR direction ILIKE '%%' || $1 || '%%') ORDER BY ts DESC LIMIT $2 OFFSET $3",
		sampleColumns, s.table)

	rows, err := s.db.QueryContext(ctx, query, q.Search, q.Limit, q.Offset())
	if err != nil {
		return nil, fmt.Errorf("postgres find: %w", err)
	}
	defer rows.Close()

	out := []*domain.Sample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, q ports.ListQuery) (int64, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE ($1 = '' OR direction ILIKE '%%' || $1 || '%%')", s.table)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, q.Search).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres count: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateByID(ctx context.Context, id string, u domain.Update) (*domain.Sample, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET lat = $1, lng = $2, altitude = $3, temperature = $4, pressure = $5, direction = $6, line_tracking = $7 WHERE id = $8 RETURNING %s",
		s.table, sampleColumns)

	sample, err := scanSample(s.db.QueryRowContext(ctx, query,
		u.Lat, u.Lng, nullFloat(u.Altitude), u.Temperature, u.Pressure,
		nullString(u.Direction), nullBool(u.LineTracking), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres update: %w", err)
	}
	return sample, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (*domain.Sample, error) {
	var (
		sample    domain.Sample
		altitude  sql.NullFloat64
		direction sql.NullString
		tracking  sql.NullBool
	)
	err := row.Scan(&sample.ID, &sample.Timestamp, &sample.Lat, &sample.Lng,
		&altitude, &sample.Temperature, &sample.Pressure, &direction, &tracking)
	if err != nil {
		return nil, err
	}
	if altitude.Valid {
		sample.Altitude = &altitude.Float64
	}
	if direction.Valid {
		sample.Direction = direction.String
	}
	if tracking.Valid {
		sample.LineTracking = &tracking.Bool
	}
	return &sample, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

var _ ports.SampleStore = (*Store)(nil)
