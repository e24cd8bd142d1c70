package annotations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// Annotation is the resolver's uniform row shape across the four tables.
type Annotation struct {
	ID               int64                  `json:"id"`
	ParentID         int64                  `json:"parent_id"`
	Name             string                 `json:"name"`
	Label            *string                `json:"label"`
	Score            *float64               `json:"score"`
	Explanation      *string                `json:"explanation"`
	Metadata         datatypes.JSON         `json:"metadata"`
	AnnotatorKind    types.AnnotatorKind    `json:"annotator_kind"`
	Identifier       string                 `json:"identifier"`
	Source           types.AnnotationSource `json:"source"`
	UserID           *int64                 `json:"user_id"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	DocumentPosition *int                   `json:"document_position,omitempty"`
}

// UpsertInput carries the full field set for a create-or-update. Absent
// optional fields overwrite any existing value with NULL; an upsert is a
// replacement, not a merge.
type UpsertInput struct {
	ParentID         int64
	Name             string
	Label            *string
	Score            *float64
	Explanation      *string
	Metadata         json.RawMessage
	AnnotatorKind    types.AnnotatorKind
	Identifier       string
	Source           types.AnnotationSource
	UserID           *int64
	DocumentPosition *int
}

// PatchInput updates only the fields the caller set. A null optional
// clears the column; an unset optional leaves it alone.
type PatchInput struct {
	ID          int64
	Name        types.Opt[string]
	Label       types.Opt[string]
	Score       types.Opt[float64]
	Explanation types.Opt[string]
	Metadata    types.Opt[json.RawMessage]
}

func (p PatchInput) empty() bool {
	return !p.Name.Set && !p.Label.Set && !p.Score.Set && !p.Explanation.Set && !p.Metadata.Set
}

// Resolver implements the shared create/patch/delete semantics for all
// annotation kinds. Each public method runs in a single transaction.
type Resolver struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResolver(db *gorm.DB, log *logger.Logger) *Resolver {
	return &Resolver{db: db, log: log.With("service", "annotations")}
}

// Create upserts a batch. Inputs that collide on the conflict key within
// the batch are deduplicated last-wins before touching the database, and
// the returned rows follow the deduplicated input order.
func (r *Resolver) Create(ctx context.Context, kind Kind, inputs []UpsertInput) ([]Annotation, error) {
	if len(inputs) == 0 {
		return nil, apierr.Validationf("at least one %s must be provided", kind.Name)
	}
	for i := range inputs {
		if err := validateUpsert(&inputs[i], kind); err != nil {
			return nil, err
		}
	}
	inputs = dedupLastWins(kind, inputs)

	var out []Annotation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkParents(ctx, tx, kind, parentIDs(inputs)); err != nil {
			return err
		}
		if kind.CheckBounds != nil {
			for _, in := range inputs {
				pos := 0
				if in.DocumentPosition != nil {
					pos = *in.DocumentPosition
				}
				if err := kind.CheckBounds(ctx, tx, in.ParentID, pos); err != nil {
					return err
				}
			}
		}
		ids := make([]int64, len(inputs))
		for i, in := range inputs {
			id, err := r.upsertOne(ctx, tx, kind, in)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		rows, err := r.fetchByIDs(ctx, tx, kind, ids)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("upserted annotations", "kind", kind.Name, "count", len(out))
	return out, nil
}

// Patch applies partial updates. Duplicate ids in one batch are an error,
// unlike Create's silent dedup, because two patches for the same row have
// no well-defined merge order from the caller's point of view.
func (r *Resolver) Patch(ctx context.Context, kind Kind, patches []PatchInput) ([]Annotation, error) {
	if len(patches) == 0 {
		return nil, apierr.Validationf("at least one %s patch must be provided", kind.Name)
	}
	seen := make(map[int64]bool, len(patches))
	for _, p := range patches {
		if p.empty() {
			return nil, apierr.Validationf("at least one field must be set when patching a %s", kind.Name)
		}
		if p.Name.Set {
			if p.Name.Value == nil || strings.TrimSpace(*p.Name.Value) == "" {
				return nil, apierr.Validationf("name must be a non-empty string")
			}
		}
		if p.Metadata.Set && p.Metadata.Value != nil && !json.Valid(*p.Metadata.Value) {
			return nil, apierr.Validationf("metadata must be valid JSON")
		}
		if seen[p.ID] {
			return nil, apierr.Validationf("duplicate %s id %d in patch batch", kind.Name, p.ID)
		}
		seen[p.ID] = true
	}

	var out []Annotation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]int64, len(patches))
		for i, p := range patches {
			ids[i] = p.ID
		}
		if err := r.checkExists(ctx, tx, kind, ids); err != nil {
			return err
		}
		for _, p := range patches {
			updates := map[string]any{"updated_at": time.Now().UTC()}
			if p.Name.Set {
				updates["name"] = *p.Name.Value
			}
			if p.Label.Set {
				updates["label"] = optValue(p.Label)
			}
			if p.Score.Set {
				updates["score"] = optValue(p.Score)
			}
			if p.Explanation.Set {
				updates["explanation"] = optValue(p.Explanation)
			}
			if p.Metadata.Set {
				if p.Metadata.Value == nil {
					updates["metadata"] = []byte("{}")
				} else {
					updates["metadata"] = []byte(*p.Metadata.Value)
				}
			}
			err := tx.WithContext(ctx).Table(kind.Table).
				Where("id = ?", p.ID).
				Updates(updates).Error
			if err != nil {
				return err
			}
		}
		rows, err := r.fetchByIDs(ctx, tx, kind, ids)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes rows by id and returns them in input order. Every id
// must name an existing row and ids must be distinct.
func (r *Resolver) Delete(ctx context.Context, kind Kind, ids []int64) ([]Annotation, error) {
	if len(ids) == 0 {
		return nil, apierr.Validationf("at least one %s id must be provided", kind.Name)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, apierr.Validationf("duplicate %s id %d in delete batch", kind.Name, id)
		}
		seen[id] = true
	}

	var out []Annotation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := r.fetchByIDs(ctx, tx, kind, ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return apierr.NotFoundf("%d %s(s) could not be found", len(ids)-len(rows), kind.Name)
		}
		err = tx.WithContext(ctx).
			Exec(fmt.Sprintf(`DELETE FROM %s WHERE id IN ?`, kind.Table), ids).Error
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("deleted annotations", "kind", kind.Name, "count", len(out))
	return out, nil
}

// upsertOne inserts, or updates the row holding the same conflict key.
// On a lost insert race it falls back to the update path once, leaning on
// the table's unique constraint to arbitrate.
func (r *Resolver) upsertOne(ctx context.Context, tx *gorm.DB, kind Kind, in UpsertInput) (int64, error) {
	id, found, err := r.findByKey(ctx, tx, kind, in)
	if err != nil {
		return 0, err
	}
	if found {
		return id, r.updateByID(ctx, tx, kind, id, in)
	}
	id, err = r.insert(ctx, tx, kind, in)
	if err == nil {
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, err
	}
	id, found, err = r.findByKey(ctx, tx, kind, in)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s vanished after conflicting insert", kind.Name)
	}
	return id, r.updateByID(ctx, tx, kind, id, in)
}

func (r *Resolver) findByKey(ctx context.Context, tx *gorm.DB, kind Kind, in UpsertInput) (int64, bool, error) {
	q := fmt.Sprintf(
		`SELECT id FROM %s WHERE %s = ? AND name = ? AND identifier = ?`,
		kind.Table, kind.ParentColumn)
	args := []any{in.ParentID, in.Name, in.Identifier}
	if kind.HasPosition {
		q += " AND document_position = ?"
		pos := 0
		if in.DocumentPosition != nil {
			pos = *in.DocumentPosition
		}
		args = append(args, pos)
	}
	var ids []int64
	if err := tx.WithContext(ctx).Raw(q, args...).Scan(&ids).Error; err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

func (r *Resolver) insert(ctx context.Context, tx *gorm.DB, kind Kind, in UpsertInput) (int64, error) {
	now := time.Now().UTC()
	cols := fmt.Sprintf(
		`%s, name, label, score, explanation, metadata, annotator_kind, identifier, source, user_id, created_at, updated_at`,
		kind.ParentColumn)
	ph := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"
	args := []any{
		in.ParentID, in.Name, in.Label, in.Score, in.Explanation,
		metadataOrEmpty(in.Metadata), string(in.AnnotatorKind),
		in.Identifier, string(in.Source), in.UserID, now, now,
	}
	if kind.HasPosition {
		cols += ", document_position"
		ph += ", ?"
		pos := 0
		if in.DocumentPosition != nil {
			pos = *in.DocumentPosition
		}
		args = append(args, pos)
	}
	var id int64
	err := tx.WithContext(ctx).
		Raw(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`, kind.Table, cols, ph), args...).
		Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Resolver) updateByID(ctx context.Context, tx *gorm.DB, kind Kind, id int64, in UpsertInput) error {
	updates := map[string]any{
		"label":          in.Label,
		"score":          in.Score,
		"explanation":    in.Explanation,
		"metadata":       metadataOrEmpty(in.Metadata),
		"annotator_kind": string(in.AnnotatorKind),
		"source":         string(in.Source),
		"user_id":        in.UserID,
		"updated_at":     time.Now().UTC(),
	}
	return tx.WithContext(ctx).Table(kind.Table).Where("id = ?", id).Updates(updates).Error
}

func (r *Resolver) fetchByIDs(ctx context.Context, tx *gorm.DB, kind Kind, ids []int64) ([]Annotation, error) {
	var rows []Annotation
	err := tx.WithContext(ctx).
		Raw(fmt.Sprintf(`SELECT %s FROM %s WHERE id IN ?`, kind.selectColumns(), kind.Table), ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Annotation, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]Annotation, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *Resolver) checkParents(ctx context.Context, tx *gorm.DB, kind Kind, ids []int64) error {
	var found []int64
	err := tx.WithContext(ctx).
		Raw(fmt.Sprintf(`SELECT id FROM %s WHERE id IN ?`, kind.ParentTable), ids).
		Scan(&found).Error
	if err != nil {
		return err
	}
	if missing := len(ids) - len(found); missing > 0 {
		return apierr.NotFoundf("%d %s(s) could not be found", missing, kind.ParentName)
	}
	return nil
}

func (r *Resolver) checkExists(ctx context.Context, tx *gorm.DB, kind Kind, ids []int64) error {
	var found []int64
	err := tx.WithContext(ctx).
		Raw(fmt.Sprintf(`SELECT id FROM %s WHERE id IN ?`, kind.Table), ids).
		Scan(&found).Error
	if err != nil {
		return err
	}
	if missing := len(ids) - len(found); missing > 0 {
		return apierr.NotFoundf("%d %s(s) could not be found", missing, kind.Name)
	}
	return nil
}

func validateUpsert(in *UpsertInput, kind Kind) error {
	if strings.TrimSpace(in.Name) == "" {
		return apierr.Validationf("name must be a non-empty string")
	}
	if !in.AnnotatorKind.Valid() {
		return apierr.Validationf("invalid annotator kind %q", in.AnnotatorKind)
	}
	if !in.Source.Valid() {
		return apierr.Validationf("invalid annotation source %q", in.Source)
	}
	if in.Metadata != nil && !json.Valid(in.Metadata) {
		return apierr.Validationf("metadata must be valid JSON")
	}
	if kind.HasPosition && in.DocumentPosition == nil {
		return apierr.Validationf("document position is required for a %s", kind.Name)
	}
	return nil
}

// dedupLastWins keeps the last input per conflict key. The survivor keeps
// the position of its earliest duplicate so the response order follows
// the request order.
func dedupLastWins(kind Kind, inputs []UpsertInput) []UpsertInput {
	type slot struct {
		order int
		in    UpsertInput
	}
	slots := make(map[conflictKey]*slot, len(inputs))
	next := 0
	for _, in := range inputs {
		key := kind.keyOf(in)
		if s, ok := slots[key]; ok {
			s.in = in
			continue
		}
		slots[key] = &slot{order: next, in: in}
		next++
	}
	ordered := make([]*slot, 0, len(slots))
	for _, s := range slots {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })
	out := make([]UpsertInput, len(ordered))
	for i, s := range ordered {
		out[i] = s.in
	}
	return out
}

func parentIDs(inputs []UpsertInput) []int64 {
	seen := make(map[int64]bool, len(inputs))
	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		if !seen[in.ParentID] {
			seen[in.ParentID] = true
			ids = append(ids, in.ParentID)
		}
	}
	return ids
}

func optValue[T any](o types.Opt[T]) any {
	if o.Value == nil {
		return nil
	}
	return *o.Value
}

func metadataOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return []byte(raw)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
