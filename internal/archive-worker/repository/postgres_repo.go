package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/megasena-tracker/pkg/contracts/events"
)

// Schema cria as tabelas do arquivo de concursos (idempotente)
const Schema = `
CREATE TABLE IF NOT EXISTS contests (
	contest_number       INTEGER PRIMARY KEY,
	draw_date            TEXT NOT NULL,
	drawn_numbers        TEXT[] NOT NULL,
	is_rolled_over       BOOLEAN NOT NULL DEFAULT FALSE,
	accumulated_value    NUMERIC(18,2) NOT NULL DEFAULT 0,
	estimated_next_prize NUMERIC(18,2) NOT NULL DEFAULT 0,
	source               TEXT NOT NULL DEFAULT '',
	observed_at          TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contest_prize_tiers (
	contest_number INTEGER NOT NULL REFERENCES contests(contest_number) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	description    TEXT NOT NULL,
	winners        INTEGER NOT NULL,
	prize          NUMERIC(18,2) NOT NULL,
	PRIMARY KEY (contest_number, position)
);
`

// PostgresRepo persiste concursos sorteados e suas faixas de premiação
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// EnsureSchema aplica Schema no banco
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

// SaveContest grava o concurso e substitui suas faixas numa única transação.
// Reentregas do mesmo concurso só atualizam os dados.
func (r *PostgresRepo) SaveContest(ctx context.Context, e events.ContestDrawn) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `
		INSERT INTO contests
		  (contest_number, draw_date, drawn_numbers, is_rolled_over, accumulated_value, estimated_next_prize, source, observed_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (contest_number) DO UPDATE SET
		  draw_date            = EXCLUDED.draw_date,
		  drawn_numbers        = EXCLUDED.drawn_numbers,
		  is_rolled_over       = EXCLUDED.is_rolled_over,
		  accumulated_value    = EXCLUDED.accumulated_value,
		  estimated_next_prize = EXCLUDED.estimated_next_prize,
		  source               = EXCLUDED.source,
		  observed_at          = EXCLUDED.observed_at,
		  updated_at           = now()
	`
	if _, err = tx.ExecContext(ctx, upsert,
		e.ContestNumber, e.DrawDate, pq.Array(e.DrawnNumbers),
		e.IsRolledOver, e.AccumulatedValue, e.EstimatedNextPrize,
		e.Source, e.ObservedAt,
	); err != nil {
		return fmt.Errorf("upsert contest %d: %w", e.ContestNumber, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM contest_prize_tiers WHERE contest_number = $1`, e.ContestNumber); err != nil {
		return fmt.Errorf("clear prize tiers %d: %w", e.ContestNumber, err)
	}

	const insertTier = `
		INSERT INTO contest_prize_tiers
		  (contest_number, position, description, winners, prize)
		VALUES
		  ($1,$2,$3,$4,$5)
	`
	for i, t := range e.PrizeTiers {
		if _, err = tx.ExecContext(ctx, insertTier, e.ContestNumber, i+1, t.Description, t.Winners, t.Prize); err != nil {
			return fmt.Errorf("insert prize tier %d/%d: %w", e.ContestNumber, i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit contest %d: %w", e.ContestNumber, err)
	}
	return nil
}
