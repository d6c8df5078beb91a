package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"cabo-server/db"
	"cabo-server/internal/cabo"
)

// ErrArchiveDisabled is returned by lookups when no archive is configured.
var ErrArchiveDisabled = errors.New("ArchiveDisabled: Results archive is not configured")

// ResultArchive stores the outcome of finished rounds. It is write-only
// history; live rooms are never restored from it.
type ResultArchive interface {
	RecordRound(ctx context.Context, round FinishedRound) error
	RoundsForCode(ctx context.Context, code string) ([]FinishedRound, error)
	Health(ctx context.Context) map[string]string
	Close()
}

type PostgresArchive struct {
	pool *pgxpool.Pool
}

// OpenPostgresArchive connects to databaseURL and applies pending migrations.
func OpenPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresArchive{pool: pool}, nil
}

// runMigrations applies the embedded goose migrations
func runMigrations(pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (a *PostgresArchive) RecordRound(ctx context.Context, round FinishedRound) error {
	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		var roundID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO rounds (game_code, cabo_caller_id, cabo_caller_name, finished_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, round.GameCode, nullable(round.CaboCallerID), nullable(round.CaboCallerName), round.FinishedAt).Scan(&roundID)
		if err != nil {
			return fmt.Errorf("failed to insert round for %s: %w", round.GameCode, err)
		}

		rows := make([][]any, 0, len(round.Results))
		for seat, result := range round.Results {
			rows = append(rows, []any{roundID, seat, result.PlayerID, result.Name, result.Score})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"round_scores"},
			[]string{"round_id", "seat", "player_id", "player_name", "score"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to insert scores for %s: %w", round.GameCode, err)
		}
		return nil
	})
}

// RoundsForCode lists archived rounds for a room code, newest first.
func (a *PostgresArchive) RoundsForCode(ctx context.Context, code string) ([]FinishedRound, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT r.id, r.game_code, r.cabo_caller_id, r.cabo_caller_name, r.finished_at,
		       s.player_id, s.player_name, s.score
		FROM rounds r
		JOIN round_scores s ON s.round_id = r.id
		WHERE r.game_code = $1
		ORDER BY r.finished_at DESC, r.id DESC, s.seat
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for %s: %w", code, err)
	}
	defer rows.Close()

	rounds := []FinishedRound{}
	lastID := int64(-1)
	for rows.Next() {
		var (
			id               int64
			gameCode         string
			callerID, caller *string
			finishedAt       time.Time
			playerID, name   string
			score            int
		)
		if err := rows.Scan(&id, &gameCode, &callerID, &caller, &finishedAt, &playerID, &name, &score); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if id != lastID {
			rounds = append(rounds, FinishedRound{
				GameCode:       gameCode,
				CaboCallerID:   deref(callerID),
				CaboCallerName: deref(caller),
				FinishedAt:     finishedAt.UTC(),
			})
			lastID = id
		}
		current := &rounds[len(rounds)-1]
		current.Results = append(current.Results, cabo.Result{PlayerID: playerID, Name: name, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rounds for %s: %w", code, err)
	}
	return rounds, nil
}

func (a *PostgresArchive) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := a.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	poolStats := a.pool.Stat()
	stats["status"] = "up"
	stats["total_connections"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	return stats
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
