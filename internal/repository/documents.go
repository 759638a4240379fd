package repository

import (
	"context"
	"database/sql"
	"encoding/json"
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

type DocumentRepository interface {
	Save(ctx context.Context, res *entity.DocumentResult) error
	Get(ctx context.Context, id uuid.UUID) (*entity.DocumentResult, error)
	List(ctx context.Context) ([]entity.DocumentSummary, error)
	FactsByKind(ctx context.Context, id uuid.UUID, kind constants.FactKind) ([]entity.Fact, error)
	FindByHash(ctx context.Context, hash string) (*entity.DocumentSummary, error)
}

type documentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRepository(db *DB, log *slog.Logger) DocumentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRepo{db: db, log: log}
}

var summaryColumns = []string{
	"id", "run_id", "source_path", "filename", "content_hash", "page_count",
	"overall_score", "ocr_pages", "failed_pages", "extracted_at",
}

// Save writes the document header, its pages and facts in one transaction.
// The full JSON record is stored alongside so Get returns exactly what was saved.
func (r *documentRepo) Save(ctx context.Context, res *entity.DocumentResult) error {
	record, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	b := r.db.builder()
	doc := res.Document

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return r.storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	q, args := b.Insert("documents").
		Columns(append(append([]string{}, summaryColumns...), "size_bytes", "record_json")...).
		Values(doc.ID.String(), res.RunID.String(), doc.SourcePath, doc.Filename, doc.ContentHash, doc.PageCount,
			res.Quality.OverallScore, res.Quality.OCRPages, res.Quality.FailedPages, formatTime(res.ExtractedAt),
			doc.SizeBytes, string(record)).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		r.log.Error("document insert failed", "document_id", doc.ID, "err", err)
		return r.storageErr("insert document", err)
	}

	for _, p := range res.Pages {
		reasons, _ := json.Marshal(p.FailureReasons)
		q, args = b.Insert("pages").
			Columns("document_id", "page_number", "merged_text", "text_backend", "table_count", "figure_count",
				"ocr_used", "quality_score", "word_count", "failure_reasons").
			Values(doc.ID.String(), p.Number, p.Text, p.TextBackend, len(p.Tables), p.Figures,
				p.OCRUsed, p.Quality.QualityScore, p.Quality.WordCount, string(reasons)).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			r.log.Error("page insert failed", "document_id", doc.ID, "page", p.Number, "err", err)
			return r.storageErr("insert page", err)
		}
		if len(p.Facts) == 0 {
			continue
		}
		ins := b.Insert("facts").
			Columns("document_id", "page_number", "seq", "kind", "literal", "fact_key", "numeric_value",
				"currency", "unit", "qualifier", "context", "char_offset")
		for i, f := range p.Facts {
			ins.Values(doc.ID.String(), p.Number, i, string(f.Kind), f.Literal, f.Key, nullFloat(f.Value),
				f.Currency, f.Unit, f.Qualifier, f.Context, f.Offset)
		}
		q, args = ins.Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			r.log.Error("facts insert failed", "document_id", doc.ID, "page", p.Number, "err", err)
			return r.storageErr("insert facts", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return r.storageErr("commit", err)
	}
	r.log.Info("document saved", "document_id", doc.ID, "pages", len(res.Pages), "facts", res.Statistics.TotalFacts)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.DocumentResult, error) {
	b := r.db.builder()
	q, args := b.Select("record_json").
		From(b.Table("documents")).
		Where(entsql.EQ("id", id.String())).
		Query()
	var record string
	if err := r.db.SQL.QueryRowContext(ctx, q, args...).Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
		}
		return nil, r.storageErr("get document", err)
	}
	var res entity.DocumentResult
	if err := json.Unmarshal([]byte(record), &res); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &res, nil
}

func (r *documentRepo) List(ctx context.Context) ([]entity.DocumentSummary, error) {
	b := r.db.builder()
	q, args := b.Select(summaryColumns...).
		From(b.Table("documents")).
		OrderBy("extracted_at", "source_path").
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, r.storageErr("list documents", err)
	}
	defer rows.Close()

	out := []entity.DocumentSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, r.storageErr("scan document", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.storageErr("list documents", err)
	}
	return out, nil
}

// FindByHash returns the most recent document with the given content hash.
func (r *documentRepo) FindByHash(ctx context.Context, hash string) (*entity.DocumentSummary, error) {
	b := r.db.builder()
	q, args := b.Select(summaryColumns...).
		From(b.Table("documents")).
		Where(entsql.EQ("content_hash", hash)).
		OrderBy("extracted_at").
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, r.storageErr("find by hash", err)
	}
	defer rows.Close()

	var latest *entity.DocumentSummary
	for rows.Next() {
		if latest, err = scanSummary(rows); err != nil {
			return nil, r.storageErr("scan document", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.storageErr("find by hash", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("document with hash %s: %w", hash, common.ErrNotFound)
	}
	return latest, nil
}

func (r *documentRepo) FactsByKind(ctx context.Context, id uuid.UUID, kind constants.FactKind) ([]entity.Fact, error) {
	b := r.db.builder()
	q, args := b.
		Select("page_number", "kind", "literal", "fact_key", "numeric_value", "currency", "unit", "qualifier", "context", "char_offset").
		From(b.Table("facts")).
		Where(entsql.And(entsql.EQ("document_id", id.String()), entsql.EQ("kind", string(kind)))).
		OrderBy("page_number", "seq").
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, r.storageErr("facts by kind", err)
	}
	defer rows.Close()

	out := []entity.Fact{}
	for rows.Next() {
		var (
			f     entity.Fact
			k     string
			value sql.NullFloat64
		)
		if err := rows.Scan(&f.Page, &k, &f.Literal, &f.Key, &value, &f.Currency, &f.Unit, &f.Qualifier, &f.Context, &f.Offset); err != nil {
			return nil, r.storageErr("scan fact", err)
		}
		f.Kind = constants.FactKind(k)
		if value.Valid {
			v := value.Float64
			f.Value = &v
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, r.storageErr("facts by kind", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*entity.DocumentSummary, error) {
	var (
		s               entity.DocumentSummary
		id, runID, exAt string
	)
	if err := row.Scan(&id, &runID, &s.SourcePath, &s.Filename, &s.ContentHash, &s.PageCount,
		&s.OverallScore, &s.OCRPages, &s.FailedPages, &exAt); err != nil {
		return nil, err
	}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if s.RunID, err = uuid.Parse(runID); err != nil {
		return nil, err
	}
	if s.ExtractedAt, err = parseTime(exAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *documentRepo) storageErr(op string, err error) error {
	return common.NewAppError(common.CodeStorage, op, errors.Join(common.ErrDatabase, err))
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }
