// Package corpus persists the intervention corpus in SQLite. It is the
// system of record for intervention detail; the vector store only holds
// embeddings and points back here by record id.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS interventions (
	id             TEXT PRIMARY KEY,
	category       TEXT NOT NULL,
	title          TEXT NOT NULL,
	asset_type     TEXT NOT NULL,
	defect_type    TEXT NOT NULL,
	road_type      TEXT NOT NULL DEFAULT '',
	speed_min      INTEGER NOT NULL DEFAULT 0,
	speed_max      INTEGER NOT NULL DEFAULT 0,
	description    TEXT NOT NULL,
	specs_json     TEXT NOT NULL DEFAULT '{}',
	irc_refs_json  TEXT NOT NULL DEFAULT '[]',
	insertion_seq  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interventions_category ON interventions(category);
CREATE INDEX IF NOT EXISTS idx_interventions_seq ON interventions(insertion_seq);
`

// Store wraps the SQLite corpus database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the corpus database at path and runs the
// schema migration. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// row is the flat scan shape; structured fields travel as JSON columns.
type row struct {
	ID           string `db:"id"`
	Category     string `db:"category"`
	Title        string `db:"title"`
	AssetType    string `db:"asset_type"`
	DefectType   string `db:"defect_type"`
	RoadType     string `db:"road_type"`
	SpeedMin     int    `db:"speed_min"`
	SpeedMax     int    `db:"speed_max"`
	Description  string `db:"description"`
	SpecsJSON    string `db:"specs_json"`
	IRCRefsJSON  string `db:"irc_refs_json"`
	InsertionSeq int    `db:"insertion_seq"`
}

func toRow(rec domain.InterventionRecord) (row, error) {
	specs, err := json.Marshal(rec.Specs)
	if err != nil {
		return row{}, fmt.Errorf("marshal specs for %s: %w", rec.ID, err)
	}
	refs, err := json.Marshal(rec.IRCRefs)
	if err != nil {
		return row{}, fmt.Errorf("marshal irc refs for %s: %w", rec.ID, err)
	}
	return row{
		ID:           rec.ID,
		Category:     rec.Category,
		Title:        rec.Title,
		AssetType:    rec.AssetType,
		DefectType:   rec.DefectType,
		RoadType:     rec.RoadType,
		SpeedMin:     rec.SpeedMin,
		SpeedMax:     rec.SpeedMax,
		Description:  rec.Description,
		SpecsJSON:    string(specs),
		IRCRefsJSON:  string(refs),
		InsertionSeq: rec.InsertionSeq,
	}, nil
}

func (r row) record() (domain.InterventionRecord, error) {
	rec := domain.InterventionRecord{
		ID:           r.ID,
		Category:     r.Category,
		Title:        r.Title,
		AssetType:    r.AssetType,
		DefectType:   r.DefectType,
		RoadType:     r.RoadType,
		SpeedMin:     r.SpeedMin,
		SpeedMax:     r.SpeedMax,
		Description:  r.Description,
		InsertionSeq: r.InsertionSeq,
	}
	if err := json.Unmarshal([]byte(r.SpecsJSON), &rec.Specs); err != nil {
		return rec, fmt.Errorf("unmarshal specs for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.IRCRefsJSON), &rec.IRCRefs); err != nil {
		return rec, fmt.Errorf("unmarshal irc refs for %s: %w", r.ID, err)
	}
	return rec, nil
}

const insertStmt = `
INSERT INTO interventions
	(id, category, title, asset_type, defect_type, road_type,
	 speed_min, speed_max, description, specs_json, irc_refs_json, insertion_seq)
VALUES
	(:id, :category, :title, :asset_type, :defect_type, :road_type,
	 :speed_min, :speed_max, :description, :specs_json, :irc_refs_json, :insertion_seq)
ON CONFLICT(id) DO UPDATE SET
	category = excluded.category,
	title = excluded.title,
	asset_type = excluded.asset_type,
	defect_type = excluded.defect_type,
	road_type = excluded.road_type,
	speed_min = excluded.speed_min,
	speed_max = excluded.speed_max,
	description = excluded.description,
	specs_json = excluded.specs_json,
	irc_refs_json = excluded.irc_refs_json
`

// InsertBatch writes records in a single transaction. Records with
// InsertionSeq zero are assigned the next sequence numbers; re-inserting an
// existing id updates the row but keeps its original sequence.
func (s *Store) InsertBatch(ctx context.Context, recs []domain.InterventionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.GetContext(ctx, &seq,
		`SELECT COALESCE(MAX(insertion_seq), 0) FROM interventions`); err != nil {
		return fmt.Errorf("corpus seq: %w", err)
	}

	for _, rec := range recs {
		if rec.InsertionSeq == 0 {
			seq++
			rec.InsertionSeq = seq
		}
		r, err := toRow(rec)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertStmt, r); err != nil {
			return fmt.Errorf("corpus insert %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// ByIDs loads records for the given ids, returned in the order requested.
// Ids with no corresponding row are skipped.
func (s *Store) ByIDs(ctx context.Context, ids []string) ([]domain.InterventionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM interventions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("corpus by ids: %w", err)
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("corpus by ids: %w", err)
	}

	byID := make(map[string]domain.InterventionRecord, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		byID[rec.ID] = rec
	}

	out := make([]domain.InterventionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// TextSearch is the lexical fallback used when vector retrieval yields
// nothing. Rows are ranked by how many terms they match across title,
// description, asset type and defect type, ties broken by insertion order.
func (s *Store) TextSearch(ctx context.Context, terms []string, limit int) ([]domain.InterventionRecord, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	const matchExpr = `(lower(title) LIKE ? OR lower(description) LIKE ? OR lower(asset_type) LIKE ? OR lower(defect_type) LIKE ?)`

	var hitExprs, whereExprs []string
	var hitArgs, whereArgs []any
	for _, term := range terms {
		pat := "%" + strings.ToLower(term) + "%"
		hitExprs = append(hitExprs, "(CASE WHEN "+matchExpr+" THEN 1 ELSE 0 END)")
		whereExprs = append(whereExprs, matchExpr)
		for i := 0; i < 4; i++ {
			hitArgs = append(hitArgs, pat)
			whereArgs = append(whereArgs, pat)
		}
	}

	query := `SELECT *, (` + strings.Join(hitExprs, " + ") + `) AS hits
		FROM interventions
		WHERE ` + strings.Join(whereExprs, " OR ") + `
		ORDER BY hits DESC, insertion_seq ASC
		LIMIT ?`
	args := append(hitArgs, whereArgs...)
	args = append(args, limit)

	type hitRow struct {
		row
		Hits int `db:"hits"`
	}
	var rows []hitRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("corpus text search: %w", err)
	}

	out := make([]domain.InterventionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// All streams every record in insertion order, for vector backfills.
func (s *Store) All(ctx context.Context) ([]domain.InterventionRecord, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM interventions ORDER BY insertion_seq ASC`); err != nil {
		return nil, fmt.Errorf("corpus all: %w", err)
	}
	out := make([]domain.InterventionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count reports the number of stored interventions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM interventions`); err != nil {
		return 0, fmt.Errorf("corpus count: %w", err)
	}
	return n, nil
}
