package render

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// BlockKind classifies one parsed line of notes.
type BlockKind int

const (
	BlockBody BlockKind = iota
	BlockHeading
	BlockSubheading
	BlockBullet
	BlockBreak
)

// Block is a single renderable unit.
type Block struct {
	Kind BlockKind
	Text string
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// Parse converts notes into layout blocks. Consecutive blank lines collapse
// into one break and breaks never lead or trail the result.
func Parse(notes string) []Block {
	var blocks []Block
	pendingBreak := false
	for _, raw := range strings.Split(strings.ReplaceAll(notes, "\r\n", "\n"), "\n") {
		line := cleanLine(raw)
		if line == "" {
			pendingBreak = len(blocks) > 0
			continue
		}
		if strings.HasPrefix(line, "```") {
			continue
		}
		block := classify(line)
		if block.Text == "" {
			continue
		}
		if pendingBreak && block.Kind != BlockHeading && block.Kind != BlockSubheading {
			blocks = append(blocks, Block{Kind: BlockBreak})
		}
		pendingBreak = false
		blocks = append(blocks, block)
	}
	return blocks
}

func classify(line string) Block {
	switch {
	case strings.HasPrefix(line, "###"):
		return Block{Kind: BlockHeading, Text: strings.TrimSpace(strings.TrimLeft(line, "#"))}
	case strings.HasPrefix(line, "##"):
		return Block{Kind: BlockSubheading, Text: strings.TrimSpace(line[2:])}
	case strings.HasPrefix(line, "--"):
		return Block{Kind: BlockBullet, Text: "• " + strings.TrimSpace(line[2:])}
	default:
		return Block{Kind: BlockBody, Text: line}
	}
}

// cleanLine strips HTML tags and drops runes the PDF core fonts cannot encode.
func cleanLine(line string) string {
	line = htmlTag.ReplaceAllString(line, "")
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if r == '\t' {
			b.WriteString("    ")
			continue
		}
		if r < 0x80 {
			if r >= 0x20 {
				b.WriteRune(r)
			}
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
