package config

import (
	"strconv"
	"strings"
)

// applyEnv overlays recognised environment variables on top of the file values.
func (c *Config) applyEnv(getenv func(string) string) {
	c.PublicMedia.BaseURL = valueOrDefault(getenv("PUBLIC_BASE_URL"), c.PublicMedia.BaseURL)
	c.PublicMedia.Dir = valueOrDefault(getenv("PUBLIC_MEDIA_DIR"), c.PublicMedia.Dir)
	c.PublicMedia.TTLSeconds = parseInt(getenv("PUBLIC_MEDIA_TTL_SECONDS"), c.PublicMedia.TTLSeconds)
	c.PublicMedia.Secret = valueOrDefault(getenv("PUBLIC_MEDIA_SECRET"), c.PublicMedia.Secret)
	c.FFmpeg.BinaryPath = valueOrDefault(getenv("FFMPEG_PATH"), c.FFmpeg.BinaryPath)
	c.Downloader.YtDlpPath = valueOrDefault(getenv("YTDLP_PATH"), c.Downloader.YtDlpPath)
	c.Logging.Level = valueOrDefault(getenv("LOG_LEVEL"), c.Logging.Level)
	c.Events.RedisAddr = valueOrDefault(getenv("REDIS_ADDR"), c.Events.RedisAddr)

	geminiKeys := splitList(getenv("GEMINI_API_KEYS"))
	if len(geminiKeys) > 0 && len(c.Summarizer.APIKeys) == 0 {
		c.Summarizer.APIKeys = geminiKeys
	}

	doubaoAPIKey := strings.TrimSpace(getenv("DOUBAO_API_KEY"))
	doubaoAppKey := strings.TrimSpace(getenv("DOUBAO_APP_KEY"))
	doubaoAccessKey := strings.TrimSpace(getenv("DOUBAO_ACCESS_KEY"))
	aliyunID := strings.TrimSpace(getenv("ALIBABA_CLOUD_ACCESS_KEY_ID"))
	aliyunSecret := strings.TrimSpace(getenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET"))
	tingwuAppKey := strings.TrimSpace(getenv("TINGWU_APP_KEY"))

	if len(c.Engines) == 0 {
		c.Engines = defaultEngines()
	}

	seen := map[string]bool{}
	for name, ec := range c.Engines {
		typ := ec.Type
		if typ == "" {
			typ = name
		}
		seen[typ] = true

		switch typ {
		case EngineDoubao:
			ec.APIKey = valueOrDefault(ec.APIKey, doubaoAPIKey)
			ec.AppKey = valueOrDefault(ec.AppKey, doubaoAppKey)
			ec.AccessKey = valueOrDefault(ec.AccessKey, doubaoAccessKey)
		case EngineTingwu:
			ec.AccessKeyID = valueOrDefault(ec.AccessKeyID, aliyunID)
			ec.AccessKeySecret = valueOrDefault(ec.AccessKeySecret, aliyunSecret)
			ec.AppKey = valueOrDefault(ec.AppKey, tingwuAppKey)
		case EngineGemini:
			if len(ec.APIKeys) == 0 {
				ec.APIKeys = geminiKeys
			}
		}
		c.Engines[name] = ec
	}

	// Credentials in the environment register the matching cloud engine
	// under its default name when the file did not mention it.
	if !seen[EngineDoubao] && (doubaoAPIKey != "" || (doubaoAppKey != "" && doubaoAccessKey != "")) {
		c.Engines[EngineDoubao] = EngineConfig{
			Type:      EngineDoubao,
			APIKey:    doubaoAPIKey,
			AppKey:    doubaoAppKey,
			AccessKey: doubaoAccessKey,
		}
	}
	if !seen[EngineTingwu] && aliyunID != "" && aliyunSecret != "" && tingwuAppKey != "" {
		c.Engines[EngineTingwu] = EngineConfig{
			Type:            EngineTingwu,
			AccessKeyID:     aliyunID,
			AccessKeySecret: aliyunSecret,
			AppKey:          tingwuAppKey,
		}
	}
	if !seen[EngineGemini] && len(geminiKeys) > 0 {
		c.Engines[EngineGemini] = EngineConfig{Type: EngineGemini, APIKeys: geminiKeys}
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
