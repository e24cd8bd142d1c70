package migrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// cd164e83824f: project sessions. Creates project_sessions and the session
// annotation table, links traces to sessions, then derives session rows
// retroactively from historical root-span attributes: traces sharing a
// session id become one session whose start/end are the min/max of the
// member traces' times.
func upProjectSessions(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE project_sessions (
	id %s,
	session_id VARCHAR NOT NULL,
	project_id BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
	start_time %s NOT NULL,
	end_time %s NOT NULL,
	CONSTRAINT uq_project_sessions_session_id UNIQUE (session_id)
)`, pkType(d), tsType(d), tsType(d)),
		`CREATE INDEX ix_project_sessions_project_id ON project_sessions (project_id)`,
		`ALTER TABLE traces ADD COLUMN project_session_rowid BIGINT REFERENCES project_sessions (id) ON DELETE SET NULL`,
		`CREATE INDEX ix_traces_project_session_rowid ON traces (project_session_rowid)`,
		fmt.Sprintf(`
CREATE TABLE project_session_annotations (
	id %s,
	project_session_rowid BIGINT NOT NULL REFERENCES project_sessions (id) ON DELETE CASCADE,
	name VARCHAR NOT NULL,
	label VARCHAR,
	score %s,
	explanation VARCHAR,
	metadata %s NOT NULL,
	annotator_kind VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ck_project_session_annotations_valid_annotator_kind CHECK (annotator_kind IN ('LLM', 'CODE', 'HUMAN')),
	CONSTRAINT uq_project_session_annotations_project_session_rowid_name UNIQUE (project_session_rowid, name)
)`, pkType(d), floatType(d), jsonType(d), tsType(d), tsType(d)),
	}
	if err := execAll(tx, stmts...); err != nil {
		return err
	}
	return backfillProjectSessions(ctx, tx)
}

type rootSpanRow struct {
	TraceRowID   int64
	ProjectRowID int64
	StartTime    time.Time
	EndTime      time.Time
	Attributes   []byte
}

func backfillProjectSessions(ctx context.Context, tx *gorm.DB) error {
	var rows []rootSpanRow
	err := tx.WithContext(ctx).Raw(`
		SELECT t.id AS trace_row_id, t.project_rowid AS project_row_id,
		       t.start_time AS start_time, t.end_time AS end_time,
		       s.attributes AS attributes
		FROM spans s
		JOIN traces t ON t.id = s.trace_rowid
		WHERE s.parent_id IS NULL
		ORDER BY t.id`).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("read root spans: %w", err)
	}

	// A trace may expose at most one distinct session id across its root
	// spans; conflicting ids mean the data cannot satisfy the new schema.
	sessionByTrace := make(map[int64]string)
	traceRows := make(map[int64]rootSpanRow)
	for _, r := range rows {
		traceRows[r.TraceRowID] = r
		sid := extractSessionID(r.Attributes)
		if sid == "" {
			continue
		}
		if prev, ok := sessionByTrace[r.TraceRowID]; ok && prev != sid {
			return fmt.Errorf("trace %d has conflicting session ids %q and %q", r.TraceRowID, prev, sid)
		}
		sessionByTrace[r.TraceRowID] = sid
	}

	type sessionAgg struct {
		projectRowID int64
		startTime    time.Time
		endTime      time.Time
		traceRowIDs  []int64
	}
	sessions := make(map[string]*sessionAgg)
	order := make([]string, 0)
	for traceRowID, sid := range sessionByTrace {
		r := traceRows[traceRowID]
		agg, ok := sessions[sid]
		if !ok {
			agg = &sessionAgg{projectRowID: r.ProjectRowID, startTime: r.StartTime, endTime: r.EndTime}
			sessions[sid] = agg
			order = append(order, sid)
		}
		if r.StartTime.Before(agg.startTime) {
			agg.startTime = r.StartTime
		}
		if r.EndTime.After(agg.endTime) {
			agg.endTime = r.EndTime
		}
		agg.traceRowIDs = append(agg.traceRowIDs, traceRowID)
	}

	for _, sid := range order {
		agg := sessions[sid]
		var sessionRowID int64
		err := tx.WithContext(ctx).Raw(`
			INSERT INTO project_sessions (session_id, project_id, start_time, end_time)
			VALUES (?, ?, ?, ?)
			RETURNING id`, sid, agg.projectRowID, agg.startTime, agg.endTime).Scan(&sessionRowID).Error
		if err != nil {
			return fmt.Errorf("insert session %q: %w", sid, err)
		}
		err = tx.WithContext(ctx).Exec(
			`UPDATE traces SET project_session_rowid = ? WHERE id IN ?`,
			sessionRowID, agg.traceRowIDs).Error
		if err != nil {
			return fmt.Errorf("link traces to session %q: %w", sid, err)
		}
	}
	return nil
}

// extractSessionID pulls the session identifier out of root-span attributes,
// accepting both the nested {"session": {"id": ...}} and the flat
// "session.id" encodings.
func extractSessionID(attributes []byte) string {
	if len(attributes) == 0 {
		return ""
	}
	var attrs map[string]any
	if err := json.Unmarshal(attributes, &attrs); err != nil {
		return ""
	}
	if nested, ok := attrs["session"].(map[string]any); ok {
		if sid := asString(nested["id"]); sid != "" {
			return sid
		}
	}
	return asString(attrs["session.id"])
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

func downProjectSessions(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	if err := execAll(tx,
		`DROP TABLE project_session_annotations`,
		`DROP INDEX ix_traces_project_session_rowid`,
	); err != nil {
		return err
	}
	if d == db.Postgres {
		if err := execAll(tx, `ALTER TABLE traces DROP COLUMN project_session_rowid`); err != nil {
			return err
		}
	} else {
		// SQLite cannot drop a column that carries a REFERENCES clause.
		err := rebuildTable(tx, "traces",
			fmt.Sprintf(`
CREATE TABLE traces_new (
	id %s,
	trace_id VARCHAR NOT NULL,
	project_rowid BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
	start_time %s NOT NULL,
	end_time %s NOT NULL,
	CONSTRAINT uq_traces_trace_id UNIQUE (trace_id)
)`, pkType(d), tsType(d), tsType(d)),
			`INSERT INTO traces_new (id, trace_id, project_rowid, start_time, end_time)
			 SELECT id, trace_id, project_rowid, start_time, end_time FROM traces`,
			`CREATE INDEX ix_traces_project_rowid ON traces (project_rowid)`,
		)
		if err != nil {
			return err
		}
	}
	return execAll(tx, `DROP TABLE project_sessions`)
}
