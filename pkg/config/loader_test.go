package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)
	be.Err(t, err, nil)
}

func TestLoadMergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
mq:
  url: amqp://base
  queue: base.q
worker:
  concurrency: 1
  dedup_ttl: 1h
`)
	writeFile(t, dir, "production.yaml", `
mq:
  url: amqp://prod
worker:
  concurrency: 4
`)

	cfg, err := Load("production", dir)
	be.Err(t, err, nil)
	be.Equal(t, cfg.MQ.URL, "amqp://prod")
	be.Equal(t, cfg.MQ.Queue, "base.q")
	be.Equal(t, cfg.Worker.Concurrency, 4)
	be.Equal(t, cfg.Worker.DedupTTL, time.Hour)
}

func TestLoadSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
gemini:
  api_key: ${PRS_TEST_GEMINI_KEY}
storage:
  bucket: ${PRS_TEST_UNSET_BUCKET}
`)
	writeFile(t, dir, "secrets.env", `
# comment
PRS_TEST_GEMINI_KEY="from-secrets"
`)

	cfg, err := Load("local", dir)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Gemini.APIKey, "from-secrets")
	be.Equal(t, cfg.Storage.Bucket, "")
}

func TestLoadSystemEnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
gemini:
  api_key: ${PRS_TEST_GEMINI_KEY}
mq:
  url: amqp://file
`)
	writeFile(t, dir, "secrets.env", "PRS_TEST_GEMINI_KEY=from-secrets\n")
	t.Setenv("PRS_TEST_GEMINI_KEY", "from-env")
	t.Setenv("MQ_URL", "amqp://env")

	cfg, err := Load("", dir)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Gemini.APIKey, "from-env")
	be.Equal(t, cfg.MQ.URL, "amqp://env")
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":9000\"\n")

	cfg, err := Load("local", dir)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Server.Port, ":9000")
	be.Equal(t, cfg.Storage.Prefix, "press-release-results/")
	be.Equal(t, cfg.Resolver.Timeout, 5*time.Second)
	be.Equal(t, cfg.Gmail.Label, "INBOX")
	be.Equal(t, cfg.Worker.Concurrency, 1)
}

func TestLoadMissingBase(t *testing.T) {
	_, err := Load("local", t.TempDir())
	be.True(t, err != nil)
}
