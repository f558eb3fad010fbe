package tingwu

import (
	"sort"
	"strings"

	"github.com/nguyentantai21042004/vidscribe/internal/engine"
)

// payload builds the CreateTask body. Summarization is added for summary
// and clip tasks.
func (e *Engine) payload(req engine.Request) map[string]any {
	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		target = "en"
	}

	params := map[string]any{
		"Transcription": map[string]any{
			"DiarizationEnabled": true,
			"Diarization":        map[string]any{"SpeakerCount": 2},
		},
		"TranslationEnabled":       true,
		"Translation":              map[string]any{"TargetLanguages": []string{target}},
		"LlmOutputLanguage":        target,
		"MeetingAssistanceEnabled": true,
		"MeetingAssistance":        map[string]any{"Types": []string{"Actions", "KeyInformation"}},
		"AutoChaptersEnabled":      true,
		"TextPolishEnabled":        true,
	}
	if req.Mode == "summary" || req.Mode == "clip" {
		params["SummarizationEnabled"] = true
		params["Summarization"] = map[string]any{
			"Types": []string{"Paragraph", "Conversational", "QuestionsAnswering", "MindMap"},
		}
	}

	return map[string]any{
		"AppKey": e.cfg.AppKey,
		"Input": map[string]any{
			"SourceLanguage": sourceLanguage(req.SourceLanguage),
			"TaskKey":        "task" + e.now().Format("20060102150405"),
			"FileUrl":        req.MediaURL,
		},
		"Parameters": params,
	}
}

// sourceLanguage maps caller languages to tingwu codes: cn by default,
// multilingual for auto detection.
func sourceLanguage(raw string) string {
	switch lang := engine.ResolveLanguage(raw, "cn"); lang {
	case "zh":
		return "cn"
	case "":
		return "multilingual"
	default:
		return lang
	}
}

func pickString(data map[string]any, paths ...[]string) string {
	for _, path := range paths {
		var cur any = data
		found := true
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			if cur, ok = m[key]; !ok {
				found = false
				break
			}
		}
		if !found || cur == nil {
			continue
		}
		if s, ok := cur.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

var preferredTextKeys = []string{"Text", "Content", "SentenceText", "DisplayText", "Summary", "Transcript", "Transcription"}

// FindText walks a task result for the most useful text. Preferred keys win.
// Otherwise lists are joined line by line and the longest map value is used.
func FindText(data any) string {
	switch v := data.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var parts []string
		for _, item := range v {
			if s := FindText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	case map[string]any:
		for _, key := range preferredTextKeys {
			if child, ok := v[key]; ok {
				if s := FindText(child); s != "" {
					return s
				}
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		best := ""
		for _, k := range keys {
			if s := FindText(v[k]); len(s) > len(best) {
				best = s
			}
		}
		return best
	}
	return ""
}
