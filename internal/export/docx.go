// Package export renders task results as Word documents.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// Document is a finished result ready for export.
type Document struct {
	Title       string
	Engine      string
	Prompt      string
	Content     string
	ProcessTime time.Duration
	CompletedAt time.Time
}

// Filename returns a safe .docx file name for the document.
func (d Document) Filename() string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '"' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, strings.TrimSpace(d.Title))
	if name == "" {
		name = "transcript"
	}
	return name + ".docx"
}

// WriteFile renders doc to outputPath. Content is treated as markdown, so
// plain transcripts come out as one paragraph per line.
func WriteFile(doc Document, outputPath string) error {
	d, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = "Transcript"
	}
	addStyledRun(d.AddParagraph(""), title, true, 16)

	meta := []string{}
	if doc.Engine != "" {
		meta = append(meta, "Engine: "+doc.Engine)
	}
	if !doc.CompletedAt.IsZero() {
		meta = append(meta, "Completed: "+doc.CompletedAt.Format("2006-01-02 15:04"))
	}
	if doc.ProcessTime > 0 {
		meta = append(meta, "Processing time: "+doc.ProcessTime.Round(time.Second).String())
	}
	if len(meta) > 0 {
		d.AddParagraph("").AddText(strings.Join(meta, " | ")).Font(fontName).Size(11).Color("666666")
	}
	if doc.Prompt != "" {
		d.AddParagraph("").AddText("Instruction: " + doc.Prompt).Font(fontName).Size(11).Color("666666")
	}
	d.AddParagraph("")

	writeMarkdown(d, doc.Content)

	if err := d.SaveTo(outputPath); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Render returns the .docx bytes, using tempDir as scratch space.
func Render(doc Document, tempDir string) ([]byte, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(tempDir, "export-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := WriteFile(doc, path); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Clean(path))
}

func writeMarkdown(d *docx.RootDoc, markdown string) {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(d.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}

		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			addRichText(d.AddParagraph(""), "• "+m[1])
			continue
		}

		if reNumbered.MatchString(trimmed) {
			addRichText(d.AddParagraph(""), trimmed)
			continue
		}

		addRichText(d.AddParagraph(""), trimmed)
	}
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
