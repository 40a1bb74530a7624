package notes

import (
	"fmt"
	"strings"
)

// promptTemplate fixes the markdown convention the PDF renderer understands:
// ### main headings, ## sub-headings, -- bullets and fenced code.
const promptTemplate = `Please create detailed, lengthy, well-structured notes from this video transcript. Focus on key concepts, examples, and important points that the transcript is talking about. Format the output with clear hierarchy and minimal spacing.

Generate the notes in %[1]s. All headings, bullet points, and explanations should be in %[1]s.

Formatting Guidelines:
1. Main Headings: Use '###' prefix (e.g., "### Section 1: Introduction")
2. Sub-headings: Use '##' prefix (e.g., "## Key Concepts")
3. Content: Start with a single space after headings
4. Code Blocks: Use triple backticks with language specification
5. Lists: Use '--' for bullet points, no extra line breaks between items
6. Spacing:
   - One blank line between main sections
   - No extra lines between related content
   - One blank line before and after code blocks
   - No extra lines between list items

Transcript:
%[2]s

Please include:
- Clear hierarchical structure with main and sub-headings
- Bullet points for key concepts
- Code examples if applicable
`

// BuildPrompt renders the note-taking prompt for a transcript.
func BuildPrompt(transcript, languageName string) string {
	return fmt.Sprintf(promptTemplate, languageName, strings.TrimSpace(transcript))
}
