package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nalgeon/be"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"prsummarizer/internal/model"
	"prsummarizer/pkg/config"
)

func sampleResult() model.ProcessingResult {
	return model.ProcessingResult{
		EmailTimestamp:     "2025-05-20T14:03:00+00:00",
		RetrievalTimestamp: "2025-05-20T14:05:00+00:00",
		SummaryTimestamp:   "2025-05-20T14:05:00+00:00",
		EmailSubject:       "Q2 Earnings",
		EmailSender:        "ir@example.com",
	}
}

func TestResultKey(t *testing.T) {
	be.Equal(t, ResultKey("18f2a"), "18f2a.json")
}

func newTestGCSSink(t *testing.T, srv *httptest.Server) *GCSSink {
	t.Helper()
	s, err := NewGCSSink(context.Background(),
		config.StorageConfig{Bucket: "pr-bucket", Prefix: "press-release-results/"},
		zap.NewNop(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	be.Err(t, err, nil)
	return s
}

func TestGCSSinkSave(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"pr-bucket","name":"press-release-results/18f2a.json"}`))
	}))
	defer srv.Close()

	ok := newTestGCSSink(t, srv).Save(context.Background(), sampleResult(), ResultKey("18f2a"))
	be.True(t, ok)
	be.True(t, strings.Contains(gotPath, "/b/pr-bucket/o"))
	be.True(t, strings.Contains(gotBody, "press-release-results/18f2a.json"))
	be.True(t, strings.Contains(gotBody, `"email_subject": "Q2 Earnings"`))
	be.True(t, strings.Contains(gotBody, `"llm_summary": {}`))
}

func TestGCSSinkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	}))
	defer srv.Close()

	be.Equal(t, newTestGCSSink(t, srv).Save(context.Background(), sampleResult(), "x.json"), false)
}

func TestGCSSinkRequiresBucket(t *testing.T) {
	_, err := NewGCSSink(context.Background(), config.StorageConfig{}, zap.NewNop())
	be.True(t, err != nil)
}

type fakeDB struct {
	sql  []string
	args [][]any
	err  error
	row  fakeRow
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.row
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.err
}

func TestResultRepositorySave(t *testing.T) {
	db := &fakeDB{}
	repo := NewResultRepository(db, zap.NewNop())

	be.True(t, repo.Save(context.Background(), sampleResult(), "18f2a.json"))
	be.Equal(t, len(db.sql), 1)
	be.True(t, strings.Contains(db.sql[0], "ON CONFLICT (result_key)"))
	be.Equal(t, db.args[0][0], any("18f2a.json"))

	var stored map[string]any
	be.Err(t, json.Unmarshal(db.args[0][1].(json.RawMessage), &stored), nil)
	be.Equal(t, stored["email_sender"], any("ir@example.com"))
}

func TestResultRepositorySaveError(t *testing.T) {
	repo := NewResultRepository(&fakeDB{err: errors.New("connection refused")}, zap.NewNop())
	be.Equal(t, repo.Save(context.Background(), sampleResult(), "k.json"), false)
}

func TestResultRepositoryEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	be.Err(t, NewResultRepository(db, zap.NewNop()).EnsureSchema(context.Background()), nil)
	be.True(t, strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS press_release_results"))
}

func TestResultRepositoryFindByKeyNotFound(t *testing.T) {
	repo := NewResultRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, zap.NewNop())
	_, err := repo.findByKey(context.Background(), "missing.json")
	be.Err(t, err, pgx.ErrNoRows)
}

type stubSink struct {
	ok    bool
	calls int
}

func (s *stubSink) Save(ctx context.Context, record any, key string) bool {
	s.calls++
	return s.ok
}

func TestMultiSink(t *testing.T) {
	a, b := &stubSink{ok: false}, &stubSink{ok: true}
	m := NewMultiSink(zap.NewNop(), a, b)

	be.Equal(t, m.Save(context.Background(), sampleResult(), "k.json"), false)
	be.Equal(t, a.calls, 1)
	be.Equal(t, b.calls, 1)

	a.ok = true
	be.True(t, m.Save(context.Background(), sampleResult(), "k.json"))
}

func TestResultRepositoryUpsertSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otelapi.GetTracerProvider()
	otelapi.SetTracerProvider(tp)
	t.Cleanup(func() { otelapi.SetTracerProvider(prev) })

	repo := NewResultRepository(&fakeDB{err: errors.New("connection refused")}, zap.NewNop())
	be.Equal(t, repo.Save(context.Background(), sampleResult(), "18f2a.json"), false)

	spans := sr.Ended()
	be.Equal(t, len(spans), 1)
	be.Equal(t, spans[0].Name(), "db.upsert")
	be.Equal(t, spans[0].Status().Code, codes.Error)
}
