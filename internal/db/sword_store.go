package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/chandama/touken-west-sub001/internal/sword"
)

// SwordStore keeps catalogue records as jsonb documents keyed by
// sword_index.
type SwordStore struct {
	db *DB
}

var _ sword.Store = (*SwordStore)(nil)

func NewSwordStore(db *DB) *SwordStore {
	return &SwordStore{db: db}
}

// swordWhere accumulates a WHERE clause and its positional args.
type swordWhere struct {
	clauses []string
	args    []any
}

func (w *swordWhere) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *swordWhere) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func field(name string) string {
	return "doc->>'" + name + "'"
}

func buildSwordWhere(q sword.Query) *swordWhere {
	w := &swordWhere{}

	for _, t := range q.Terms() {
		pattern := w.arg(t.Pattern(`\y`))
		or := make([]string, 0, len(sword.SearchFields)+1)
		for _, f := range sword.SearchFields {
			or = append(or, field(f)+" ~* "+pattern)
		}
		if t.Numeric() {
			or = append(or, "sword_index = "+w.arg(t.Text))
		}
		w.clauses = append(w.clauses, "("+strings.Join(or, " OR ")+")")
	}

	for _, f := range sword.ExactFields {
		if v, ok := q.Exact[f]; ok {
			w.clauses = append(w.clauses, field(f)+" = "+w.arg(v))
		}
	}

	if q.Authentication != "" {
		auth := sword.Term{Text: q.Authentication}
		w.clauses = append(w.clauses, field("Authentication")+" ~* "+w.arg(auth.Pattern("")))
	}

	if q.HasMedia != nil {
		empty := make([]string, 0, len(sword.EmptyMedia))
		for _, v := range sword.EmptyMedia {
			empty = append(empty, w.arg(v))
		}
		op := " IN "
		if *q.HasMedia {
			op = " NOT IN "
		}
		w.clauses = append(w.clauses,
			"COALESCE("+field(sword.FieldMedia)+", '')"+op+"("+strings.Join(empty, ", ")+")")
	}
	return w
}

func (s *SwordStore) Search(ctx context.Context, q sword.Query) (sword.Result, error) {
	q = q.Normalize()
	w := buildSwordWhere(q)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM swords`+w.String(), w.args...).Scan(&total); err != nil {
		return sword.Result{}, err
	}

	where := w.String()
	query := `SELECT doc FROM swords` + where + ` ORDER BY sword_index LIMIT ` + w.arg(q.Limit) + ` OFFSET ` + w.arg(q.Offset())

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return sword.Result{}, err
	}
	defer rows.Close()

	out := []sword.Sword{}
	for rows.Next() {
		doc, err := scanSword(rows)
		if err != nil {
			return sword.Result{}, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return sword.Result{}, err
	}
	return sword.Result{Swords: out, Total: total}, nil
}

func (s *SwordStore) FindByIndex(ctx context.Context, index string) (sword.Sword, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM swords WHERE sword_index = $1`, index)
	return swordResult(scanSword(row))
}

const insertSword = `
INSERT INTO swords (sword_index, doc)
SELECT next.n::text, $1::jsonb || jsonb_build_object('Index', next.n::text)
FROM (
    SELECT COALESCE(MAX(CASE WHEN sword_index ~ '^[0-9]+$' THEN sword_index::bigint END), 0) + 1 AS n
    FROM swords
) AS next
RETURNING doc`

func (s *SwordStore) Create(ctx context.Context, rec sword.Sword) (sword.Sword, error) {
	doc, err := encodeSword(rec)
	if err != nil {
		return nil, err
	}
	return swordResult(scanSword(s.db.QueryRowContext(ctx, insertSword, doc)))
}

func (s *SwordStore) Update(ctx context.Context, index string, fields sword.Sword) (sword.Sword, error) {
	doc, err := encodeSword(fields)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE swords SET doc = doc || $1::jsonb WHERE sword_index = $2 RETURNING doc`, doc, index)
	return swordResult(scanSword(row))
}

func (s *SwordStore) Delete(ctx context.Context, index string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM swords WHERE sword_index = $1`, index)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sword.ErrNotFound
	}
	return nil
}

func (s *SwordStore) Distinct(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT doc->>$1 FROM swords WHERE doc->>$1 IS NOT NULL`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// encodeSword marshals rec without its Index, which the table owns.
func encodeSword(rec sword.Sword) ([]byte, error) {
	doc := make(sword.Sword, len(rec))
	for k, v := range rec {
		if k != sword.FieldIndex {
			doc[k] = v
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("db: encode sword: %w", err)
	}
	return raw, nil
}

func swordResult(doc sword.Sword, err error) (sword.Sword, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sword.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, sword.ErrDuplicate
	}
	return doc, err
}

func scanSword(row rowScanner) (sword.Sword, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	var doc sword.Sword
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("db: decode sword: %w", err)
	}
	return doc, nil
}
