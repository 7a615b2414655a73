package judge

import (
	"bytes"
	"strings"
	"text/template"
)

const judgeSystemPrompt = `You are an English speaking coach running a scripted role-play. Decide whether the learner's reply fits the current turn of the scene.

Instructions:
- The reply passes when its meaning matches ANY of the reference responses. Wording, word order and small grammar slips do not matter.
- A reply that is off-topic, answers a different question, or is not English fails.
- When the reply fails, give a concrete hint telling the learner what to say.
- Write reason and hint in Simplified Chinese. Keep them short.`

const critiqueSystemPrompt = `You are an English speaking coach who helps learners sound natural. Look at what the learner said in this turn, name the main problem, and give one more natural English expression.

Instructions:
- Describe the issue in Simplified Chinese, at most 20 characters.
- The better expression must be English that fits the scene.`

var judgeUserTemplate = template.Must(template.New("judge").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Scene: {{.SubSceneName}}

Conversation so far:
{{if .History}}{{range .History}}{{.Speaker}}: {{.Text}}
{{end}}{{else}}(the conversation has just started)
{{end}}
The other person just said: {{.SpeakerText}}{{if .SpeakerTextCn}} ({{.SpeakerTextCn}}){{end}}

Reference responses (any of these meanings passes):
{{range $i, $r := .Responses}}{{inc $i}}. {{$r.Text}}{{if $r.TextCn}} ({{$r.TextCn}}){{end}}
{{end}}
Learner's reply: {{.Utterance}}`))

var critiqueUserTemplate = template.Must(template.New("critique").Parse(`Scene: {{.SubSceneName}}
The other person said: {{.SpeakerText}}{{if .SpeakerTextCn}} ({{.SpeakerTextCn}}){{end}}
Reference responses: {{.Reference}}
What the learner actually said: {{.Utterance}}`))

type historyLine struct {
	Speaker string
	Text    string
}

func buildJudgeMessage(c Context, utterance string, window int) (string, error) {
	history := c.History
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	lines := make([]historyLine, len(history))
	for i, l := range history {
		speaker := "Learner"
		if l.Role == RoleAI {
			speaker = "AI"
		}
		lines[i] = historyLine{Speaker: speaker, Text: l.Text}
	}

	var buf bytes.Buffer
	err := judgeUserTemplate.Execute(&buf, map[string]any{
		"SubSceneName":  c.SubSceneName,
		"History":       lines,
		"SpeakerText":   c.Pair.SpeakerText,
		"SpeakerTextCn": c.Pair.SpeakerTextCn,
		"Responses":     c.Pair.Responses,
		"Utterance":     utterance,
	})
	return buf.String(), err
}

func buildCritiqueMessage(c CritiqueContext, utterance string) (string, error) {
	refs := make([]string, len(c.Pair.Responses))
	for i, r := range c.Pair.Responses {
		refs[i] = r.Text
	}

	var buf bytes.Buffer
	err := critiqueUserTemplate.Execute(&buf, map[string]any{
		"SubSceneName":  c.SubSceneName,
		"SpeakerText":   c.Pair.SpeakerText,
		"SpeakerTextCn": c.Pair.SpeakerTextCn,
		"Reference":     strings.Join(refs, " / "),
		"Utterance":     utterance,
	})
	return buf.String(), err
}
