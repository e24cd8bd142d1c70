package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// SpanInput is one span of an ingest batch.
type SpanInput struct {
	SpanID       string          `json:"span_id"`
	ParentID     *string         `json:"parent_id"`
	Name         string          `json:"name"`
	SpanKind     string          `json:"span_kind"`
	Attributes   json.RawMessage `json:"attributes"`
	NumDocuments int             `json:"num_documents"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
}

type IngestService interface {
	// IngestSpans appends a batch of spans to a trace, creating the
	// project and trace on first sight. Root spans carrying a session id
	// attribute attach the trace to its project session; the session's
	// time window widens to cover the trace.
	IngestSpans(ctx context.Context, projectName, traceID string, spans []SpanInput) ([]*types.Span, error)
}

type ingestService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	traceRepo   repos.TraceRepo
	spanRepo    repos.SpanRepo
	sessionRepo repos.SessionRepo
}

func NewIngestService(db *gorm.DB, baseLog *logger.Logger, projectRepo repos.ProjectRepo,
	traceRepo repos.TraceRepo, spanRepo repos.SpanRepo, sessionRepo repos.SessionRepo) IngestService {
	return &ingestService{
		db:          db,
		log:         baseLog.With("service", "IngestService"),
		projectRepo: projectRepo,
		traceRepo:   traceRepo,
		spanRepo:    spanRepo,
		sessionRepo: sessionRepo,
	}
}

func (is *ingestService) IngestSpans(ctx context.Context, projectName, traceID string, spans []SpanInput) ([]*types.Span, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return nil, apierr.Validationf("project name must be a non-empty string")
	}
	if strings.TrimSpace(traceID) == "" {
		return nil, apierr.Validationf("trace id must be a non-empty string")
	}
	if len(spans) == 0 {
		return nil, apierr.Validationf("at least one span must be provided")
	}
	if err := validateSpans(spans); err != nil {
		return nil, err
	}

	var created []*types.Span
	err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := is.ensureProject(ctx, tx, projectName)
		if err != nil {
			return err
		}
		trace, err := is.ensureTrace(ctx, tx, project.ID, traceID, spans)
		if err != nil {
			return err
		}

		rows := make([]*types.Span, 0, len(spans))
		for _, in := range spans {
			attrs := in.Attributes
			if len(attrs) == 0 {
				attrs = []byte("{}")
			}
			rows = append(rows, &types.Span{
				TraceRowID:   trace.ID,
				SpanID:       in.SpanID,
				ParentID:     in.ParentID,
				Name:         in.Name,
				SpanKind:     in.SpanKind,
				Attributes:   []byte(attrs),
				NumDocuments: in.NumDocuments,
				StartTime:    in.StartTime,
				EndTime:      in.EndTime,
			})
		}
		created, err = is.spanRepo.Create(ctx, tx, rows)
		if err != nil {
			return err
		}
		return is.attachSession(ctx, tx, project.ID, trace, spans)
	})
	if err != nil {
		return nil, err
	}
	is.log.Info("ingested spans", "project", projectName, "trace_id", traceID, "count", len(created))
	return created, nil
}

func (is *ingestService) ensureProject(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
	project, err := is.projectRepo.GetByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return project, nil
	}
	return is.projectRepo.Create(ctx, tx, &types.Project{Name: name})
}

// ensureTrace creates the trace on first sight and widens its time window
// to cover the incoming batch on every append.
func (is *ingestService) ensureTrace(ctx context.Context, tx *gorm.DB, projectRowID int64, traceID string, spans []SpanInput) (*types.Trace, error) {
	start, end := spans[0].StartTime, spans[0].EndTime
	for _, s := range spans[1:] {
		if s.StartTime.Before(start) {
			start = s.StartTime
		}
		if s.EndTime.After(end) {
			end = s.EndTime
		}
	}

	trace, err := is.traceRepo.GetByTraceID(ctx, tx, traceID)
	if err != nil {
		return nil, err
	}
	if trace == nil {
		created, err := is.traceRepo.Create(ctx, tx, []*types.Trace{{
			TraceID:      traceID,
			ProjectRowID: projectRowID,
			StartTime:    start,
			EndTime:      end,
		}})
		if err != nil {
			return nil, err
		}
		return created[0], nil
	}
	if trace.ProjectRowID != projectRowID {
		return nil, apierr.Validationf("trace %q belongs to a different project", traceID)
	}
	changed := false
	if start.Before(trace.StartTime) {
		trace.StartTime = start
		changed = true
	}
	if end.After(trace.EndTime) {
		trace.EndTime = end
		changed = true
	}
	if changed {
		if err := tx.WithContext(ctx).Save(trace).Error; err != nil {
			return nil, err
		}
	}
	return trace, nil
}

// attachSession links the trace to the project session named by its root
// spans. A trace may expose at most one distinct session id; a root span
// naming a second one is rejected.
func (is *ingestService) attachSession(ctx context.Context, tx *gorm.DB, projectRowID int64, trace *types.Trace, spans []SpanInput) error {
	sid := ""
	for _, s := range spans {
		if s.ParentID != nil {
			continue
		}
		candidate := sessionIDFromAttributes(s.Attributes)
		if candidate == "" {
			continue
		}
		if sid != "" && sid != candidate {
			return apierr.Validationf("trace %q has conflicting session ids %q and %q", trace.TraceID, sid, candidate)
		}
		sid = candidate
	}
	if sid == "" {
		return nil
	}

	session, err := is.sessionRepo.GetBySessionID(ctx, tx, sid)
	if err != nil {
		return err
	}
	if session == nil {
		session, err = is.sessionRepo.Create(ctx, tx, &types.ProjectSession{
			SessionID:    sid,
			ProjectRowID: projectRowID,
			StartTime:    trace.StartTime,
			EndTime:      trace.EndTime,
		})
		if err != nil {
			return err
		}
	} else {
		if session.ProjectRowID != projectRowID {
			return apierr.Validationf("session %q belongs to a different project", sid)
		}
		if trace.ProjectSessionRowID != nil && *trace.ProjectSessionRowID != session.ID {
			return apierr.Validationf("trace %q is already attached to another session", trace.TraceID)
		}
		changed := false
		if trace.StartTime.Before(session.StartTime) {
			session.StartTime = trace.StartTime
			changed = true
		}
		if trace.EndTime.After(session.EndTime) {
			session.EndTime = trace.EndTime
			changed = true
		}
		if changed {
			if _, err := is.sessionRepo.Update(ctx, tx, session); err != nil {
				return err
			}
		}
	}
	if trace.ProjectSessionRowID == nil {
		trace.ProjectSessionRowID = &session.ID
		if err := tx.WithContext(ctx).Save(trace).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateSpans(spans []SpanInput) error {
	seen := make(map[string]struct{}, len(spans))
	for i, s := range spans {
		if strings.TrimSpace(s.SpanID) == "" {
			return apierr.Validationf("span %d is missing a span id", i)
		}
		if _, dup := seen[s.SpanID]; dup {
			return apierr.Validationf("span id %q appears more than once in the batch", s.SpanID)
		}
		seen[s.SpanID] = struct{}{}
		if strings.TrimSpace(s.Name) == "" {
			return apierr.Validationf("span %q is missing a name", s.SpanID)
		}
		if s.StartTime.IsZero() || s.EndTime.IsZero() {
			return apierr.Validationf("span %q is missing its time window", s.SpanID)
		}
		if s.EndTime.Before(s.StartTime) {
			return apierr.Validationf("span %q ends before it starts", s.SpanID)
		}
		if s.NumDocuments < 0 {
			return apierr.Validationf("span %q has a negative document count", s.SpanID)
		}
		if len(s.Attributes) > 0 && !json.Valid(s.Attributes) {
			return apierr.Validationf("span %q attributes must be valid JSON", s.SpanID)
		}
	}
	return nil
}

// sessionIDFromAttributes accepts both the nested {"session": {"id": ...}}
// and the flat "session.id" attribute encodings.
func sessionIDFromAttributes(attributes []byte) string {
	if len(attributes) == 0 {
		return ""
	}
	var attrs map[string]any
	if err := json.Unmarshal(attributes, &attrs); err != nil {
		return ""
	}
	if nested, ok := attrs["session"].(map[string]any); ok {
		if sid := attrString(nested["id"]); sid != "" {
			return sid
		}
	}
	return attrString(attrs["session.id"])
}

func attrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}
