package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine types understood by the registry.
const (
	EngineWhisper = "whisper"
	EngineQwen3   = "qwen3_asr"
	EngineDoubao  = "doubao_asr"
	EngineTingwu  = "tingwu"
	EngineGemini  = "gemini"
)

// Publish backends.
const (
	PublishGateway = "gateway"
	PublishMinio   = "minio"
)

type Config struct {
	Server      ServerConfig            `yaml:"server"`
	PublicMedia PublicMediaConfig       `yaml:"public_media"`
	Paths       PathsConfig             `yaml:"paths"`
	FFmpeg      FFmpegConfig            `yaml:"ffmpeg"`
	Downloader  DownloaderConfig        `yaml:"downloader"`
	Workers     WorkersConfig           `yaml:"workers"`
	Logging     LoggingConfig           `yaml:"logging"`
	Engines     map[string]EngineConfig `yaml:"engines"`
	Summarizer  SummarizerConfig        `yaml:"summarizer"`
	Events      EventsConfig            `yaml:"events"`
	Publish     PublishConfig           `yaml:"publish"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PublicMediaConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Dir             string        `yaml:"dir"`
	TTLSeconds      int           `yaml:"ttl_seconds"`
	GraceSeconds    int           `yaml:"grace_seconds"`
	Secret          string        `yaml:"secret"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// SecretGenerated is set when no secret was configured and a random one was used.
	SecretGenerated bool `yaml:"-"`
}

// TTL is the validity window of a signed URL.
func (p PublicMediaConfig) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

// Retention is how long an artifact stays on disk: TTL plus the grace margin.
func (p PublicMediaConfig) Retention() time.Duration {
	return time.Duration(p.TTLSeconds+p.GraceSeconds) * time.Second
}

type PathsConfig struct {
	Temp string `yaml:"temp"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type DownloaderConfig struct {
	YtDlpPath string        `yaml:"ytdlp_path"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	Attempts  int           `yaml:"attempts"`
}

type WorkersConfig struct {
	Count         int           `yaml:"count"`
	QueueSize     int           `yaml:"queue_size"`
	TaskRetention time.Duration `yaml:"task_retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineConfig holds the settings of one named engine. Which fields apply
// depends on Type.
type EngineConfig struct {
	Type string `yaml:"type"`

	// whisper, qwen3_asr
	Command         []string `yaml:"command"`
	Format          string   `yaml:"format"`
	DefaultLanguage string   `yaml:"default_language"`

	// doubao_asr
	APIKey     string `yaml:"api_key"`
	AppKey     string `yaml:"app_key"`
	AccessKey  string `yaml:"access_key"`
	ResourceID string `yaml:"resource_id"`
	SubmitURL  string `yaml:"submit_url"`
	QueryURL   string `yaml:"query_url"`

	// tingwu
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`

	// gemini
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`

	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SummarizerConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
}

type EventsConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type PublishConfig struct {
	Backend string      `yaml:"backend"`
	Minio   MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads the YAML file at path, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration built from defaults and the environment only.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	hasPublicBase := strings.TrimSpace(c.PublicMedia.BaseURL) != ""

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	c.PublicMedia.BaseURL = strings.TrimRight(strings.TrimSpace(c.PublicMedia.BaseURL), "/")
	if c.PublicMedia.BaseURL == "" {
		c.PublicMedia.BaseURL = "http://127.0.0.1:8000"
	}
	if c.PublicMedia.Dir == "" {
		c.PublicMedia.Dir = filepath.Join(os.TempDir(), "vidscribe-public-media")
	}
	if c.PublicMedia.TTLSeconds < 0 {
		return fmt.Errorf("public_media.ttl_seconds must not be negative")
	}
	if c.PublicMedia.TTLSeconds == 0 {
		c.PublicMedia.TTLSeconds = 7200
	}
	if c.PublicMedia.GraceSeconds <= 0 {
		c.PublicMedia.GraceSeconds = 300
	}
	if c.PublicMedia.CleanupInterval == 0 {
		c.PublicMedia.CleanupInterval = 5 * time.Minute
	}
	if c.PublicMedia.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate public media secret: %w", err)
		}
		c.PublicMedia.Secret = secret
		c.PublicMedia.SecretGenerated = true
	}

	if c.Paths.Temp == "" {
		c.Paths.Temp = os.TempDir()
	}
	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Downloader.YtDlpPath == "" {
		c.Downloader.YtDlpPath = "yt-dlp"
	}
	if c.Downloader.Timeout == 0 {
		c.Downloader.Timeout = 10 * time.Minute
	}
	if c.Downloader.MaxBytes == 0 {
		c.Downloader.MaxBytes = 2 << 30
	}
	if c.Downloader.Attempts == 0 {
		c.Downloader.Attempts = 3
	}

	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 64
	}
	if c.Workers.TaskRetention == 0 {
		c.Workers.TaskRetention = 24 * time.Hour
	}
	if c.Workers.SweepInterval == 0 {
		c.Workers.SweepInterval = 10 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Publish.Backend == "" {
		c.Publish.Backend = PublishGateway
	}
	switch c.Publish.Backend {
	case PublishGateway:
	case PublishMinio:
		m := c.Publish.Minio
		if m.Endpoint == "" || m.Bucket == "" || m.AccessKey == "" || m.SecretKey == "" {
			return fmt.Errorf("publish.minio requires endpoint, bucket, access_key and secret_key")
		}
	default:
		return fmt.Errorf("publish.backend %q is not supported", c.Publish.Backend)
	}

	if len(c.Engines) == 0 {
		c.Engines = defaultEngines()
	}
	for name, ec := range c.Engines {
		if err := ec.validate(name, hasPublicBase || c.Publish.Backend == PublishMinio); err != nil {
			return err
		}
		// The remote service may fetch the link at any point until the job times out.
		if ec.Type == EngineDoubao && c.PublicMedia.TTL() <= ec.Timeout {
			return fmt.Errorf("engines.%s: public_media.ttl_seconds (%s) must exceed the engine timeout (%s)",
				name, c.PublicMedia.TTL(), ec.Timeout)
		}
		c.Engines[name] = ec
	}

	if c.Summarizer.Enabled && len(c.Summarizer.APIKeys) == 0 {
		return fmt.Errorf("summarizer.api_keys is required when the summarizer is enabled")
	}
	if c.Summarizer.Model == "" {
		c.Summarizer.Model = "gemini-2.5-flash"
	}

	if c.Events.ChannelPrefix == "" {
		c.Events.ChannelPrefix = "vidscribe:task:"
	}

	return nil
}

func (e *EngineConfig) validate(name string, canPublish bool) error {
	if e.Type == "" {
		e.Type = name
	}

	switch e.Type {
	case EngineWhisper:
		if len(e.Command) == 0 {
			e.Command = []string{"python3", "scripts/whisper_turbo_transcribe.py"}
		}
		if e.Format == "" {
			e.Format = "json"
		}
		if e.DefaultLanguage == "" {
			e.DefaultLanguage = "zh"
		}
	case EngineQwen3:
		if len(e.Command) == 0 {
			e.Command = []string{"python3", "scripts/qwen3_asr_transcribe.py"}
		}
		if e.DefaultLanguage == "" {
			e.DefaultLanguage = "zh"
		}
	case EngineDoubao:
		if e.APIKey == "" && (e.AppKey == "" || e.AccessKey == "") {
			return fmt.Errorf("engines.%s: api_key or app_key + access_key is required", name)
		}
		if !canPublish {
			return fmt.Errorf("engines.%s: public_media.base_url must be set so the engine can fetch published audio", name)
		}
		if e.ResourceID == "" {
			e.ResourceID = "volc.seedasr.auc"
		}
		if e.SubmitURL == "" {
			e.SubmitURL = "https://openspeech.bytedance.com/api/v3/auc/bigmodel/submit"
		}
		if e.QueryURL == "" {
			e.QueryURL = "https://openspeech.bytedance.com/api/v3/auc/bigmodel/query"
		}
		if e.PollInterval == 0 {
			e.PollInterval = 3 * time.Second
		}
	case EngineTingwu:
		if e.AccessKeyID == "" || e.AccessKeySecret == "" || e.AppKey == "" {
			return fmt.Errorf("engines.%s: access_key_id, access_key_secret and app_key are required", name)
		}
		if e.Region == "" {
			e.Region = "cn-beijing"
		}
		if e.Endpoint == "" {
			e.Endpoint = "tingwu." + e.Region + ".aliyuncs.com"
		}
		if e.PollInterval == 0 {
			e.PollInterval = 5 * time.Second
		}
	case EngineGemini:
		if len(e.APIKeys) == 0 {
			return fmt.Errorf("engines.%s: api_keys is required", name)
		}
		if e.Model == "" {
			e.Model = "gemini-2.5-flash"
		}
	default:
		return fmt.Errorf("engines.%s: unknown engine type %q", name, e.Type)
	}

	if e.Timeout == 0 {
		e.Timeout = 30 * time.Minute
	}
	return nil
}

func defaultEngines() map[string]EngineConfig {
	return map[string]EngineConfig{
		"local":     {Type: EngineWhisper},
		EngineQwen3: {Type: EngineQwen3},
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
