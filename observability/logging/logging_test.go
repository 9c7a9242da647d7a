package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupWritesStructuredJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "vaultd", Env: "test", Output: &buf})
	logger.Info("hello", MaskField("owner", "stake1owner"), slog.String("vault", "stake1xyz"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	checks := map[string]string{
		"service":  "vaultd",
		"env":      "test",
		"severity": "INFO",
		"message":  "hello",
		"owner":    RedactedValue,
		"vault":    "stake1xyz",
	}
	for key, want := range checks {
		if got := line[key]; got != want {
			t.Fatalf("%s = %v, want %q", key, got, want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp missing from %v", line)
	}
}

func TestSetupHonoursLevelAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "vaultd.log")
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{
		Service: "vaultd",
		Level:   "warn",
		Output:  &buf,
		File:    &FileOptions{Path: path, MaxSizeMB: 1},
	})
	logger.Info("dropped")
	logger.Warn("kept")

	if bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte(`"message":"kept"`)) {
		t.Fatalf("log file missing warn line: %s", data)
	}
}

func TestSensitiveKeysRedactedAutomatically(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "vaultd", Output: &buf})
	logger.Info("auth",
		slog.String("Authorization", "Bearer abc"),
		slog.String("hmac_secret", "0123456789abcdef"),
		slog.String("indexer_dsn", "postgres://user:pw@db/vault"),
		slog.String("token", ""),
		slog.Group("http", slog.String("access_token", "xyz"), slog.Int("status", 200)),
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for _, key := range []string{"Authorization", "hmac_secret", "indexer_dsn"} {
		if line[key] != RedactedValue {
			t.Fatalf("%s = %v, want redacted", key, line[key])
		}
	}
	if line["token"] != "" {
		t.Fatalf("empty token should stay empty, got %v", line["token"])
	}
	group, ok := line["http"].(map[string]any)
	if !ok || group["access_token"] != RedactedValue || group["status"] != float64(200) {
		t.Fatalf("unexpected group %v", line["http"])
	}
}

func TestIsSensitive(t *testing.T) {
	for _, key := range []string{"secret", "VAULTD_HMAC_SECRET", "passphrase", "db_password", "private_key"} {
		if !IsSensitive(key) {
			t.Fatalf("%s should be sensitive", key)
		}
	}
	for _, key := range []string{"", "vault", "sender", "lender", "height"} {
		if IsSensitive(key) {
			t.Fatalf("%s should not be sensitive", key)
		}
	}
	if MaskValue("") != "" || MaskValue("x") != RedactedValue {
		t.Fatalf("unexpected MaskValue behaviour")
	}
}
