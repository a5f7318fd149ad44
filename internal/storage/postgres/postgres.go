package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"engagement-engine/internal/models"
	"engagement-engine/internal/storage"

	"github.com/gocraft/dbr/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	conn   *dbr.Connection
	sess   *dbr.Session
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

func New(dsn string, opts Options, logger *zap.Logger) (*Store, error) {
	conn, err := dbr.Open("postgres", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// set up connection pool
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("successfully connected to PostgreSQL")

	return NewWithConnection(conn, logger), nil
}

// NewWithConnection wraps an already opened connection.
func NewWithConnection(conn *dbr.Connection, logger *zap.Logger) *Store {
	return &Store{
		conn:   conn,
		sess:   conn.NewSession(nil),
		logger: logger,
	}
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		s.logger.Error("failed to apply schema", zap.Error(err))
		return fmt.Errorf("apply schema: %w", err)
	}

	s.logger.Info("schema applied")
	return nil
}

func (s *Store) BeginTx(ctx context.Context) (*dbr.Tx, error) {
	return s.sess.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *dbr.Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.RollbackUnlessCommitted()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

var activityColumns = []string{
	"id", "user_id", "type", "message", "reference_id", "reference_type",
	"status", "read", "meta", "created_at",
}

func insertActivities(ctx context.Context, runner dbr.SessionRunner, activities []*models.Activity) error {
	for _, a := range activities {
		_, err := runner.
			InsertInto("activities").
			Columns(activityColumns...).
			Values(a.ID, a.UserID, a.Type, a.Message, a.ReferenceID, a.ReferenceType,
				a.Status, a.Read, a.Meta, a.CreatedAt).
			ExecContext(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicate
			}
			return fmt.Errorf("insert activity: %w", err)
		}
	}
	return nil
}

func affected(result sql.Result) int64 {
	n, _ := result.RowsAffected()
	return n
}
