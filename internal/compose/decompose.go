package compose

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/blockpress/internal/model"
)

// frontMatter holds the post metadata an import may carry.
type frontMatter struct {
	Title       string
	Description string
	Category    string
}

// splitFrontMatter separates a leading YAML (---) or TOML (+++) front matter
// block from the body. Unparseable front matter is left in the body.
func splitFrontMatter(s string) (frontMatter, string) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, delim := range []string{"---", "+++"} {
		if !strings.HasPrefix(s, delim+"\n") {
			continue
		}
		rest := s[len(delim)+1:]
		end := strings.Index(rest, "\n"+delim)
		if end < 0 {
			return frontMatter{}, s
		}
		head := rest[:end]
		body := strings.TrimPrefix(rest[end+1+len(delim):], "\n")

		var fm map[string]any
		var err error
		if delim == "---" {
			err = yaml.Unmarshal([]byte(head), &fm)
		} else {
			err = toml.Unmarshal([]byte(head), &fm)
		}
		if err != nil {
			return frontMatter{}, s
		}
		return frontMatterFrom(fm), body
	}
	return frontMatter{}, s
}

func frontMatterFrom(fm map[string]any) frontMatter {
	out := frontMatter{
		Title:       stringField(fm, "title"),
		Description: stringField(fm, "description", "summary"),
		Category:    stringField(fm, "category"),
	}
	if out.Category == "" {
		if list, ok := fm["categories"].([]any); ok && len(list) > 0 {
			out.Category, _ = list[0].(string)
		}
	}
	return out
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

var (
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	dividerLine = regexp.MustCompile(`^(?:(?:-\s*){3,}|(?:\*\s*){3,}|(?:_\s*){3,})$`)
	imageLine   = regexp.MustCompile(`^!\[([^\]]*)\]\((\S+?)(?:\s+"([^"]*)")?\)$`)
	linkLine    = regexp.MustCompile(`^\[([^\]]+)\]\((\S+?)(?:\s+"([^"]*)")?\)$`)
)

// decomposeMarkdown turns markdown-ish text into blocks: ATX headings, fenced
// code, block quotes, dividers, standalone images and links, and paragraphs.
// Blocks that fail validation are dropped.
func decomposeMarkdown(s string) []model.Block {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var blocks []model.Block
	var para, quote []string

	flushPara := func() {
		if text := strings.TrimSpace(strings.Join(para, " ")); text != "" {
			blocks = append(blocks, model.TextBlock{Base: newBase(text)})
		}
		para = para[:0]
	}
	flushQuote := func() {
		if text := strings.TrimSpace(strings.Join(quote, " ")); text != "" {
			blocks = append(blocks, model.QuoteBlock{Base: newBase(text)})
		}
		quote = quote[:0]
	}
	flush := func() { flushPara(); flushQuote() }

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			flush()
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code = append(code, lines[i])
			}
			blocks = append(blocks, model.CodeBlock{Base: newBase(strings.Join(code, "\n")), Language: lang})
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, ">"):
			flushPara()
			quote = append(quote, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
		case dividerLine.MatchString(trimmed):
			flush()
			blocks = append(blocks, model.DividerBlock{Base: newBase("")})
		default:
			flushQuote()
			if m := headingLine.FindStringSubmatch(trimmed); m != nil {
				flushPara()
				blocks = append(blocks, model.HeadingBlock{Base: newBase(m[2]), Level: len(m[1])})
			} else if m := imageLine.FindStringSubmatch(trimmed); m != nil {
				flushPara()
				blocks = append(blocks, model.ImageBlock{Base: newBase(m[1]), ImageURL: m[2], Description: m[3]})
			} else if m := linkLine.FindStringSubmatch(trimmed); m != nil {
				flushPara()
				blocks = append(blocks, model.LinkBlock{Base: newBase(m[1]), URL: m[2], Description: m[3]})
			} else {
				para = append(para, trimmed)
			}
		}
	}
	flush()
	return model.ValidBlocks(blocks)
}

// decomposeText splits plain text into one text block per non-empty line.
func decomposeText(s string) []model.Block {
	var blocks []model.Block
	for _, line := range strings.Split(normalizeText(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			blocks = append(blocks, model.TextBlock{Base: newBase(line)})
		}
	}
	return blocks
}

// decomposeHTML walks an HTML fragment or document and emits blocks for
// headings, paragraphs, list items, block quotes, preformatted code, images
// and horizontal rules. Blocks that fail validation are dropped.
func decomposeHTML(r io.Reader) ([]model.Block, string) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, ""
	}

	var blocks []model.Block
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Head:
				if n.DataAtom == atom.Head {
					title = headTitle(n)
				}
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if text := textContent(n); text != "" {
					level := int(n.Data[1] - '0')
					blocks = append(blocks, model.HeadingBlock{Base: newBase(text), Level: level})
				}
				return
			case atom.P, atom.Li:
				if text := textContent(n); text != "" {
					blocks = append(blocks, model.TextBlock{Base: newBase(text)})
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.DataAtom == atom.Img {
						walk(c)
					}
				}
				return
			case atom.Blockquote:
				if text := textContent(n); text != "" {
					blocks = append(blocks, model.QuoteBlock{Base: newBase(text), Source: attr(n, "cite")})
				}
				return
			case atom.Pre:
				blocks = append(blocks, model.CodeBlock{Base: newBase(rawText(n)), Language: codeLanguage(n)})
				return
			case atom.Img:
				blocks = append(blocks, model.ImageBlock{
					Base:        newBase(attr(n, "alt")),
					ImageURL:    attr(n, "src"),
					Description: attr(n, "title"),
				})
				return
			case atom.Hr:
				blocks = append(blocks, model.DividerBlock{Base: newBase("")})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return model.ValidBlocks(blocks), title
}

func headTitle(head *html.Node) string {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			return textContent(c)
		}
	}
	return ""
}

// textContent returns the whitespace-collapsed text below n.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var buf bytes.Buffer
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Trim(buf.String(), "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// codeLanguage reads a "language-xxx" class from a <pre> or its <code> child.
func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	if c := pre.FirstChild; c != nil && c.DataAtom == atom.Code {
		nodes = append(nodes, c)
	}
	for _, n := range nodes {
		for _, class := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func newBase(content string) model.Base {
	return model.Base{ID: model.NewBlockID(), Content: content}
}
