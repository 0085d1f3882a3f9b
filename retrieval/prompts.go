package retrieval

import "github.com/tmc/langchaingo/prompts"

var groundedPrompt = prompts.NewPromptTemplate(
	"You are an AI assistant embodying this persona:\n\n"+
		"{{.description}}\n\n"+
		"Base all your answers on the following retrieved context where possible. "+
		"If the context doesn't fully answer the user's question, respond using the tone, style, and personality of {{.name}}.\n\n"+
		"--- Relevant Context ---\n"+
		"{{range $i, $c := .context}}Context {{add1 $i}}: {{$c}}\n{{end}}"+
		"--- End Context ---\n\n"+
		"Instructions:\n"+
		"- Stay in character as {{.name}}\n"+
		"- Answer primarily using the provided context\n"+
		"- If context is insufficient, acknowledge it and extrapolate\n"+
		"- Be conversational and engaging",
	[]string{"name", "description", "context"},
)

var personaOnlyPrompt = prompts.NewPromptTemplate(
	"You are an AI assistant embodying this persona:\n\n"+
		"{{.description}}\n\n"+
		"No contextual information is available for this question. "+
		"Answer in the tone, style, and personality of {{.name}}, even without contextual grounding.",
	[]string{"name", "description"},
)

// SystemInstruction renders the system message for persona. When context is
// non-empty the chunks are listed in order, numbered from 1.
func SystemInstruction(name, description string, context []string) (string, error) {
	if len(context) == 0 {
		return personaOnlyPrompt.Format(map[string]any{
			"name":        name,
			"description": description,
		})
	}
	return groundedPrompt.Format(map[string]any{
		"name":        name,
		"description": description,
		"context":     context,
	})
}
