// Package audit keeps a durable history of committed spins in PostgreSQL so
// operators can reconcile payouts. The engine runs fine without it.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nidhogg/ruleta/internal/spin"
	"go.uber.org/zap"
)

// Store wraps a PostgreSQL connection pool.
type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// Entry is one audited spin.
type Entry struct {
	ID        string    `json:"id"`
	UsuarioID string    `json:"usuario_id"`
	Cajero    string    `json:"cajero"`
	Premio    string    `json:"premio"`
	Big       bool      `json:"big"`
	SpunAt    time.Time `json:"spun_at"`
}

// New creates a Store with a pgx connection pool.
func New(dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return &Store{db: pool, logger: logger}, nil
}

// Migrate reads and executes all .up.sql files from the migrations directory.
func (s *Store) Migrate(ctx context.Context, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		s.logger.Info("migration applied", zap.String("file", f))
	}
	return nil
}

// RecordSpin inserts one committed spin. Satisfies spin.Recorder.
func (s *Store) RecordSpin(ctx context.Context, rec spin.Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO spins (id, usuario_id, cajero, premio, big, spun_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), rec.UsuarioID, rec.Cajero, rec.Premio, rec.Big, rec.SpunAt,
	)
	if err != nil {
		return fmt.Errorf("record spin for %s: %w", rec.UsuarioID, err)
	}
	return nil
}

// ListRecent returns the newest spins, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, usuario_id, cajero, premio, big, spun_at
		FROM spins ORDER BY spun_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list spins: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UsuarioID, &e.Cajero, &e.Premio, &e.Big, &e.SpunAt); err != nil {
			return nil, fmt.Errorf("scan spin: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.db.Close()
}
