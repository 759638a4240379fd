package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

type RunRepository interface {
	Start(ctx context.Context, sourcePath string) (*entity.Run, error)
	FinishSuccess(ctx context.Context, runID, documentID uuid.UUID) error
	FinishFailure(ctx context.Context, runID uuid.UUID, message string) error
	Get(ctx context.Context, runID uuid.UUID) (*entity.Run, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log, now: time.Now}
}

func (r *runRepo) Start(ctx context.Context, sourcePath string) (*entity.Run, error) {
	run := &entity.Run{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Status:     string(constants.RunStatusRunning),
		StartedAt:  r.now().UTC(),
	}
	q, args := r.db.builder().Insert("runs").
		Columns("id", "source_path", "status", "started_at").
		Values(run.ID.String(), run.SourcePath, run.Status, formatTime(run.StartedAt)).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, q, args...); err != nil {
		r.log.Error("run start failed", "source_path", sourcePath, "err", err)
		return nil, common.NewAppError(common.CodeStorage, "start run", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("run started", "run_id", run.ID, "source_path", sourcePath)
	return run, nil
}

func (r *runRepo) FinishSuccess(ctx context.Context, runID, documentID uuid.UUID) error {
	q, args := r.db.builder().Update("runs").
		Set("status", string(constants.RunStatusExtracted)).
		Set("document_id", documentID.String()).
		Set("finished_at", formatTime(r.now())).
		Where(entsql.EQ("id", runID.String())).
		Query()
	if err := r.exec(ctx, q, args); err != nil {
		r.log.Error("run finish(EXTRACTED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("run finished (EXTRACTED)", "run_id", runID, "document_id", documentID)
	return nil
}

func (r *runRepo) FinishFailure(ctx context.Context, runID uuid.UUID, message string) error {
	q, args := r.db.builder().Update("runs").
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", message).
		Set("finished_at", formatTime(r.now())).
		Where(entsql.EQ("id", runID.String())).
		Query()
	if err := r.exec(ctx, q, args); err != nil {
		r.log.Error("run finish(FAILED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Warn("run finished (FAILED)", "run_id", runID, "error", message)
	return nil
}

func (r *runRepo) Get(ctx context.Context, runID uuid.UUID) (*entity.Run, error) {
	b := r.db.builder()
	q, args := b.Select("id", "source_path", "status", "document_id", "error_message", "started_at", "finished_at").
		From(b.Table("runs")).
		Where(entsql.EQ("id", runID.String())).
		Query()
	var (
		run                     entity.Run
		id, started             string
		docID, errMsg, finished sql.NullString
	)
	err := r.db.SQL.QueryRowContext(ctx, q, args...).Scan(&id, &run.SourcePath, &run.Status, &docID, &errMsg, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "get run", errors.Join(common.ErrDatabase, err))
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if docID.Valid {
		d, err := uuid.Parse(docID.String)
		if err != nil {
			return nil, err
		}
		run.DocumentID = &d
	}
	run.ErrorMessage = errMsg.String
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func (r *runRepo) exec(ctx context.Context, q string, args []any) error {
	res, err := r.db.SQL.ExecContext(ctx, q, args...)
	if err != nil {
		return common.NewAppError(common.CodeStorage, "update run", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: %w", common.ErrNotFound)
	}
	return nil
}
