package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/v2/document"
)

// DefaultDocxSectionChars 是单个段落分组的软上限（字符数）。
const DefaultDocxSectionChars = 1000

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
// 配置了 unioffice 许可证时使用 unioffice，否则直接解析 OOXML。
type DocxLoader struct {
	sectionChars int
	useSDK       func() bool
}

// NewDocxLoader 创建一个新的 DocxLoader。useSDK 为 nil 时始终使用内置的 OOXML 解析。
func NewDocxLoader(sectionChars int, useSDK func() bool) *DocxLoader {
	if sectionChars <= 0 {
		sectionChars = DefaultDocxSectionChars
	}
	return &DocxLoader{sectionChars: sectionChars, useSDK: useSDK}
}

// docxParagraph 是与具体解析后端解耦的段落视图。
type docxParagraph struct {
	text    string
	heading bool
	bold    bool
}

// docxContent 是一份文档的正文段落和表格（表格 -> 行 -> 单元格文本）。
type docxContent struct {
	paras  []docxParagraph
	tables [][][]string
}

// Load 读取一个 .docx 文件，按标题/加粗段落/长度切分为 "Section N:" 片段，
// 表格随后以 "Table N:" 片段输出。
func (l *DocxLoader) Load(ctx context.Context, path string) ([]string, error) {
	var (
		content *docxContent
		err     error
	)
	if l.useSDK != nil && l.useSDK() {
		content, err = readDocxSDK(path)
	} else {
		content, err = readDocxXML(path)
	}
	if err != nil {
		return nil, err
	}

	segments := docxSections(content.paras, l.sectionChars)
	return append(segments, docxTables(content.tables)...), nil
}

func readDocxSDK(path string) (*docxContent, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	content := &docxContent{}
	for _, p := range doc.Paragraphs() {
		content.paras = append(content.paras, readParagraph(p))
	}
	for _, t := range doc.Tables() {
		var rows [][]string
		for _, row := range t.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				var parts []string
				for _, p := range cell.Paragraphs() {
					if txt := strings.TrimSpace(readParagraph(p).text); txt != "" {
						parts = append(parts, txt)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			rows = append(rows, cells)
		}
		content.tables = append(content.tables, rows)
	}
	return content, nil
}

func readParagraph(p document.Paragraph) docxParagraph {
	var sb strings.Builder
	runs := p.Runs()
	bold := len(runs) > 0
	for _, r := range runs {
		txt := r.Text()
		sb.WriteString(txt)
		if strings.TrimSpace(txt) != "" && !r.Properties().IsBold() {
			bold = false
		}
	}
	return docxParagraph{
		text:    sb.String(),
		heading: isHeadingStyle(p.Style()),
		bold:    bold,
	}
}

func isHeadingStyle(style string) bool {
	style = strings.ToLower(style)
	return strings.HasPrefix(style, "heading") || style == "title"
}

// docxSections 把段落聚合为片段：标题或整段加粗的段落开启新片段，
// 片段超过 limit 个字符后立即结束。
func docxSections(paras []docxParagraph, limit int) []string {
	var (
		segments []string
		current  strings.Builder
	)
	flush := func() {
		if txt := strings.TrimSpace(current.String()); txt != "" {
			segments = append(segments, fmt.Sprintf("Section %d:\n%s", len(segments)+1, txt))
		}
		current.Reset()
	}

	for _, p := range paras {
		txt := strings.TrimSpace(p.text)
		if txt == "" {
			continue
		}
		if p.heading || p.bold {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(txt)
		if len([]rune(current.String())) > limit {
			flush()
		}
	}
	flush()
	return segments
}

// docxTables 输出 "Table N:" 片段，单元格按行用 " | " 连接，空行和空表跳过。
func docxTables(tables [][][]string) []string {
	var segments []string
	for _, rows := range tables {
		var sb strings.Builder
		for _, cells := range rows {
			line := strings.Join(cells, " | ")
			if strings.TrimSpace(strings.ReplaceAll(line, "|", "")) == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		if sb.Len() == 0 {
			continue
		}
		segments = append(segments, fmt.Sprintf("Table %d:\n%s", len(segments)+1, strings.TrimRight(sb.String(), "\n")))
	}
	return segments
}

// 编译时检查，确保 DocxLoader 实现了 Loader 接口
var _ interfaces.Loader = (*DocxLoader)(nil)
