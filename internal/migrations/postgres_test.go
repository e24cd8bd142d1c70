package migrations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/introspect"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
)

// newPostgresTestEngine runs against the server named by POSTGRES_TEST_URL
// and skips when it is unset. Each test gets a throwaway schema selected
// via search_path so concurrent runs and leftovers cannot collide.
func newPostgresTestEngine(t *testing.T) (*Engine, *db.Service) {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	admin, err := db.New(db.Config{URL: url}, log)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	schema := fmt.Sprintf("mig_test_%d", time.Now().UnixNano())
	mustExec(t, admin.DB(), fmt.Sprintf(`CREATE SCHEMA %q`, schema))
	t.Cleanup(func() {
		admin.DB().Exec(fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema))
	})

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	svc, err := db.New(db.Config{URL: url + sep + "search_path=" + schema, Schema: schema}, log)
	if err != nil {
		t.Fatalf("failed to open postgres with schema %s: %v", schema, err)
	}
	return NewEngine(svc, log), svc
}

func TestPostgresStepwiseDowngradeRestoresSchema(t *testing.T) {
	engine, _ := newPostgresTestEngine(t)
	ctx := context.Background()
	revisions := engine.Revisions()

	ascent := make([]map[string]introspect.TableInfo, len(revisions))
	for i, rev := range revisions {
		if err := engine.Upgrade(ctx, rev.ID); err != nil {
			t.Fatalf("upgrade to %s failed: %v", rev.ID, err)
		}
		ascent[i] = snapshot(t, ctx, engine)
	}

	for i := len(revisions) - 1; i >= 1; i-- {
		target := revisions[i-1].ID
		if err := engine.Downgrade(ctx, target); err != nil {
			t.Fatalf("downgrade to %s failed: %v", target, err)
		}
		compareSnapshots(t, "at "+target, ascent[i-1], snapshot(t, ctx, engine))
	}
	if err := engine.Downgrade(ctx, Base); err != nil {
		t.Fatalf("downgrade to base failed: %v", err)
	}
	if got := snapshot(t, ctx, engine); len(got) > 1 {
		t.Fatalf("tables remain after downgrade to base: %v", got)
	}
}

func TestPostgresAuthMethodExclusivityEnforced(t *testing.T) {
	engine, svc := newPostgresTestEngine(t)
	ctx := context.Background()
	conn := svc.DB()

	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}

	err := conn.Exec(`INSERT INTO users (username, email, auth_method, password_hash, password_salt, oauth2_client_id)
		VALUES ('alice', 'a@example.com', 'LOCAL', decode('01', 'hex'), decode('02', 'hex'), 'client')`).Error
	if err == nil || !strings.Contains(err.Error(), "local_auth_has_password_no_oauth") {
		t.Fatalf("err = %v, want local_auth_has_password_no_oauth violation", err)
	}

	err = conn.Exec(`INSERT INTO users (username, auth_method) VALUES ('bob', 'LDAP')`).Error
	if err == nil || !strings.Contains(err.Error(), "ldap_auth_has_unique_id_no_password_no_oauth") {
		t.Fatalf("err = %v, want ldap_auth_has_unique_id_no_password_no_oauth violation", err)
	}

	err = conn.Exec(`INSERT INTO users (username, auth_method) VALUES ('carol', 'SAML')`).Error
	if err == nil || !strings.Contains(err.Error(), "ck_users_valid_auth_method") {
		t.Fatalf("err = %v, want ck_users_valid_auth_method violation", err)
	}

	mustExec(t, conn, `INSERT INTO users (username, auth_method, password_hash, password_salt)
		VALUES ('dora', 'LOCAL', decode('01', 'hex'), decode('02', 'hex'))`)
	mustExec(t, conn, `INSERT INTO users (username, auth_method, oauth2_client_id, oauth2_user_id)
		VALUES ('eve', 'OAUTH2', 'client', 'user')`)
	mustExec(t, conn, `INSERT INTO users (username, auth_method, ldap_unique_id)
		VALUES ('frank', 'LDAP', 'uid=frank')`)
}

// Moving invocation_parameters from JSONB to JSON changes the column's
// physical representation; the stored value must come through unchanged.
func TestPostgresInvocationParametersSurviveTypeChange(t *testing.T) {
	engine, svc := newPostgresTestEngine(t)
	ctx := context.Background()
	conn := svc.DB()

	if err := engine.Upgrade(ctx, "a20694b15f82"); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	mustExec(t, conn, `INSERT INTO prompts (name) VALUES ('summarize')`)
	mustExec(t, conn, `INSERT INTO prompt_versions (prompt_id, template_format, template, invocation_parameters, model_provider, model_name)
		VALUES (1, 'MUSTACHE', '{"text": "{{input}}"}', '{"temperature": 0.5, "max_tokens": 256}', 'openai', 'gpt-4')`)

	if err := engine.Upgrade(ctx, "8b885da28ff9"); err != nil {
		t.Fatalf("type change upgrade failed: %v", err)
	}

	var dataType string
	err := conn.Raw(`SELECT data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'prompt_versions' AND column_name = 'invocation_parameters'`).
		Scan(&dataType).Error
	if err != nil {
		t.Fatalf("read column type: %v", err)
	}
	if dataType != "json" {
		t.Errorf("invocation_parameters type = %q, want json", dataType)
	}

	var params string
	if err := conn.Raw(`SELECT invocation_parameters FROM prompt_versions WHERE id = 1`).Scan(&params).Error; err != nil {
		t.Fatalf("read params: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(params), &got); err != nil {
		t.Fatalf("stored params %q are not valid JSON: %v", params, err)
	}
	want := map[string]any{"temperature": 0.5, "max_tokens": float64(256)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("invocation_parameters = %v, want %v", got, want)
	}
}
