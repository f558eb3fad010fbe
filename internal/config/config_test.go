package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "empty config gets defaults",
			config: Config{},
		},
		{
			name: "unknown engine type",
			config: Config{
				Engines: map[string]EngineConfig{"x": {Type: "carrier-pigeon"}},
			},
			wantErr: "unknown engine type",
		},
		{
			name: "doubao without credentials",
			config: Config{
				PublicMedia: PublicMediaConfig{BaseURL: "https://tunnel.example.com"},
				Engines:     map[string]EngineConfig{"doubao_asr": {}},
			},
			wantErr: "api_key",
		},
		{
			name: "doubao without public base url",
			config: Config{
				Engines: map[string]EngineConfig{"doubao_asr": {APIKey: "k"}},
			},
			wantErr: "public_media.base_url",
		},
		{
			name: "doubao publishing through minio needs no base url",
			config: Config{
				Publish: PublishConfig{
					Backend: PublishMinio,
					Minio:   MinioConfig{Endpoint: "minio:9000", Bucket: "audio", AccessKey: "a", SecretKey: "s"},
				},
				Engines: map[string]EngineConfig{"doubao_asr": {APIKey: "k"}},
			},
		},
		{
			name: "doubao link expires before the job times out",
			config: Config{
				PublicMedia: PublicMediaConfig{BaseURL: "https://tunnel.example.com", TTLSeconds: 600},
				Engines:     map[string]EngineConfig{"doubao_asr": {APIKey: "k"}},
			},
			wantErr: "must exceed the engine timeout",
		},
		{
			name: "doubao link ttl equal to timeout",
			config: Config{
				PublicMedia: PublicMediaConfig{BaseURL: "https://tunnel.example.com", TTLSeconds: 60},
				Engines:     map[string]EngineConfig{"doubao_asr": {APIKey: "k", Timeout: time.Minute}},
			},
			wantErr: "ttl_seconds",
		},
		{
			name: "doubao link outlives a short timeout",
			config: Config{
				PublicMedia: PublicMediaConfig{BaseURL: "https://tunnel.example.com", TTLSeconds: 600},
				Engines:     map[string]EngineConfig{"doubao_asr": {APIKey: "k", Timeout: 5 * time.Minute}},
			},
		},
		{
			name: "tingwu missing app key",
			config: Config{
				Engines: map[string]EngineConfig{"tingwu": {AccessKeyID: "id", AccessKeySecret: "secret"}},
			},
			wantErr: "app_key",
		},
		{
			name: "gemini missing keys",
			config: Config{
				Engines: map[string]EngineConfig{"gemini": {}},
			},
			wantErr: "api_keys",
		},
		{
			name:    "minio backend incomplete",
			config:  Config{Publish: PublishConfig{Backend: PublishMinio}},
			wantErr: "publish.minio",
		},
		{
			name:    "unknown publish backend",
			config:  Config{Publish: PublishConfig{Backend: "ftp"}},
			wantErr: "publish.backend",
		},
		{
			name:    "summarizer enabled without keys",
			config:  Config{Summarizer: SummarizerConfig{Enabled: true}},
			wantErr: "summarizer.api_keys",
		},
		{
			name:    "negative ttl",
			config:  Config{PublicMedia: PublicMediaConfig{TTLSeconds: -1}},
			wantErr: "ttl_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.PublicMedia.TTLSeconds != 7200 {
		t.Errorf("TTLSeconds = %d, want 7200", cfg.PublicMedia.TTLSeconds)
	}
	if cfg.PublicMedia.Retention() <= cfg.PublicMedia.TTL() {
		t.Error("Retention() must exceed TTL()")
	}
	if !cfg.PublicMedia.SecretGenerated || len(cfg.PublicMedia.Secret) != 64 {
		t.Errorf("expected a generated 32-byte hex secret, got %q", cfg.PublicMedia.Secret)
	}
	if cfg.PublicMedia.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.PublicMedia.BaseURL)
	}
	if _, ok := cfg.Engines["local"]; !ok {
		t.Error("default engines should include local")
	}
	if got := cfg.Engines["local"].Type; got != EngineWhisper {
		t.Errorf("local engine type = %q, want %q", got, EngineWhisper)
	}
	if cfg.Workers.Count != 2 || cfg.Workers.QueueSize != 64 {
		t.Errorf("workers = %+v", cfg.Workers)
	}
}

func TestLoad(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	content := `
server:
  addr: ":9000"
  shutdown_timeout: 5s

public_media:
  base_url: "https://tunnel.example.com/"
  dir: "data/public"
  ttl_seconds: 3600
  secret: "s3cret"

workers:
  count: 4
  task_retention: 2h

engines:
  local:
    type: whisper
    command: ["./whisper-cli"]
    format: txt
  doubao:
    type: doubao_asr
    api_key: "abc"
    poll_interval: 1s

logging:
  level: "debug"
  format: "json"
`

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("PUBLIC_MEDIA_SECRET", "")

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.PublicMedia.BaseURL != "https://tunnel.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.PublicMedia.BaseURL)
	}
	if cfg.PublicMedia.Secret != "s3cret" || cfg.PublicMedia.SecretGenerated {
		t.Errorf("secret should come from the file")
	}
	if cfg.Workers.TaskRetention != 2*time.Hour {
		t.Errorf("TaskRetention = %v", cfg.Workers.TaskRetention)
	}
	local := cfg.Engines["local"]
	if len(local.Command) != 1 || local.Command[0] != "./whisper-cli" || local.Format != "txt" {
		t.Errorf("local engine = %+v", local)
	}
	doubao := cfg.Engines["doubao"]
	if doubao.PollInterval != time.Second || doubao.ResourceID == "" || doubao.Timeout != 30*time.Minute {
		t.Errorf("doubao engine = %+v", doubao)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PUBLIC_BASE_URL":          "https://abc.trycloudflare.com",
		"PUBLIC_MEDIA_TTL_SECONDS": "3600",
		"PUBLIC_MEDIA_SECRET":      "from-env",
		"DOUBAO_API_KEY":           "doubao-key",
		"GEMINI_API_KEYS":          "k1, k2,,",
		"FFMPEG_PATH":              "/opt/bin/ffmpeg",
	}
	getenv := func(key string) string { return env[key] }

	var cfg Config
	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.PublicMedia.TTLSeconds != 3600 || cfg.PublicMedia.Secret != "from-env" {
		t.Errorf("public media = %+v", cfg.PublicMedia)
	}
	if cfg.FFmpeg.BinaryPath != "/opt/bin/ffmpeg" {
		t.Errorf("ffmpeg path = %q", cfg.FFmpeg.BinaryPath)
	}
	if got := cfg.Engines[EngineDoubao].APIKey; got != "doubao-key" {
		t.Errorf("doubao api key = %q", got)
	}
	if got := cfg.Engines[EngineGemini].APIKeys; len(got) != 2 || got[1] != "k2" {
		t.Errorf("gemini keys = %v", got)
	}
	if _, ok := cfg.Engines["local"]; !ok {
		t.Error("env-registered engines must not replace the local defaults")
	}
}
