package enrich

import (
	"fmt"
	"strings"

	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

const (
	commentTextChars = 350
	noCommentsLine   = "- not enough comments -"
)

const systemPromptTemplate = `You write content for Bubbles, an app that helps ordinary people understand topics under public debate in a clear, accessible and balanced way.

Core principles:
- The app NEVER takes a side.
- The context must be neutral and informative.
- Opinions represent real positions that exist in the public debate.
- Clarity matters more than literal translation.
- Everything must make sense to someone with no prior knowledge of the topic.

General rules:
- Write clear, direct, accessible %[1]s.
- No headline tone, no sensationalism.
- Do not invent facts that are not implied by the title or the comments.
- Do not moralize or judge in the context.
- Opinions may be stronger and more polarized than the context.`

const userPromptTemplate = `You will receive a TITLE (the main topic), a COMMUNITY (where it was discussed) and a list of real COMMENTS about it.

Produce:

0) TITLE in %[1]s focused on the debate
- Rewrite the title clearly and remove any ambiguity.
- Do not force words like "conflict" or "dispute" when the event is a decision, statement, change, investigation, agreement, sanction, announcement or reaction. Prefer the precise word.
- Never get basic facts wrong, such as the current role of public figures.

1) LABEL
- Short but informative, 4 to 8 words, not a full sentence.
- It must set this bubble apart from related ones.

2) CONTEXT
- At most 3 sentences explaining what happened, who is involved and why it matters.
- Fully neutral. If an essential term needs it, explain it in parentheses in 3 to 6 words.

3) OPINIONS (EXACTLY 3, each up to 220 characters)
- One "positive" opinion in favour of one side.
- One "negative" opinion from the opposing side, never the same side as the positive one.
- One "neutral" opinion that is skeptical or weighed, on topic and not generic.
- Name the actors explicitly (presidents, governments, companies) and the ideology when the dispute is ideological.
- No usernames, no insults.

OUTPUT FORMAT: return ONLY valid JSON, no markdown, with exactly this structure:

{
  "title": "...",
  "label": "...",
  "context": "...",
  "opinions": [
    {"id": "op1", "tone": "positive", "text": "...", "source": "%[2]s"},
    {"id": "op2", "tone": "negative", "text": "...", "source": "%[2]s"},
    {"id": "op3", "tone": "neutral", "text": "...", "source": "%[2]s"}
  ]
}

TITLE (original): "%[3]s"
COMMUNITY: %[4]s

COMMENTS (candidates):
%[5]s`

// systemPrompt renders the fixed instructions for the target language.
func systemPrompt(language string) string {
	return fmt.Sprintf(systemPromptTemplate, language)
}

// userPrompt renders the per-bubble instructions.
func userPrompt(in Input, language string, maxLines int) string {
	return fmt.Sprintf(userPromptTemplate,
		language, in.Source, in.Title, in.Community, commentBlock(in.Comments, maxLines))
}

// commentBlock lists comments as "NN) (+score) text", one per line.
func commentBlock(comments []source.Comment, maxLines int) string {
	if len(comments) > maxLines {
		comments = comments[:maxLines]
	}
	if len(comments) == 0 {
		return noCommentsLine
	}

	lines := make([]string, len(comments))
	for i, c := range comments {
		text := textutil.Truncate(textutil.SafeText(c.Text), commentTextChars)
		lines[i] = fmt.Sprintf("%02d) (+%d) %s", i+1, c.Score, text)
	}
	return strings.Join(lines, "\n")
}
