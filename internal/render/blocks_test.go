package render

import (
	"reflect"
	"testing"
)

func TestParseConvention(t *testing.T) {
	notes := "### Section 1: Intro\n" +
		" Overview of <b>the</b> talk.\n" +
		"## Key Concepts\n" +
		"-- first point\n" +
		"--second point\n" +
		"\n\n" +
		"```go\n" +
		"fmt.Println(\"hi\")\n" +
		"```\n" +
		"Closing café remark 你好.\n"

	want := []Block{
		{Kind: BlockHeading, Text: "Section 1: Intro"},
		{Kind: BlockBody, Text: "Overview of the talk."},
		{Kind: BlockSubheading, Text: "Key Concepts"},
		{Kind: BlockBullet, Text: "• first point"},
		{Kind: BlockBullet, Text: "• second point"},
		{Kind: BlockBreak},
		{Kind: BlockBody, Text: "fmt.Println(\"hi\")"},
		{Kind: BlockBody, Text: "Closing café remark ."},
	}
	if got := Parse(notes); !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestParseNoLeadingOrTrailingBreaks(t *testing.T) {
	got := Parse("\n\nbody\n\n\n")
	if len(got) != 1 || got[0].Kind != BlockBody {
		t.Fatalf("unexpected blocks %+v", got)
	}
}

func TestParseBlankBeforeHeadingAddsNoBreak(t *testing.T) {
	got := Parse("text\n\n### Next")
	if len(got) != 2 || got[1].Kind != BlockHeading {
		t.Fatalf("unexpected blocks %+v", got)
	}
}

func TestParseDropsEmptyMarkers(t *testing.T) {
	if got := Parse("###\n##\n<br>"); len(got) != 0 {
		t.Fatalf("expected no blocks, got %+v", got)
	}
}
