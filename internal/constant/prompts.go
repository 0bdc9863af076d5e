package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// AnswerUnknown is returned whenever retrieval produces no candidates.
// Returned as a successful response, never as an error.
const AnswerUnknown = "I don't know."

// ContextSeparator joins reranked passages inside the QA prompt.
const ContextSeparator = "\n---\n"

// QAPromptTemplate constrains the model to answer only from the retrieved
// context. Arguments: context, question.
const QAPromptTemplate = `You are a helpful assistant. Answer ONLY from the CONTEXT.
If unsure, say 'I don't know.'

CONTEXT:
%s

QUESTION: %s
ANSWER:`

// ProofreadSystemPrompt drives the single-shot text correction endpoint.
const ProofreadSystemPrompt = `You are a meticulous proofreader. Correct spelling, grammar, and punctuation in the user's text.
Preserve the original meaning, tone, and formatting. Reply with the corrected text only, no commentary.`

// DefaultSystemPrompt is injected on a session's first chat turn when the
// chosen model has no specific entry in SystemPromptsByModel.
const DefaultSystemPrompt = `You are a helpful, concise assistant running fully offline.
Answer clearly and admit when you do not know something.`

// SystemPromptsByModel maps a chat model name to the system prompt injected
// on a session's first turn.
var SystemPromptsByModel = map[string]string{
	"llama3:8b-instruct-q4_K_M": `You are a helpful, concise assistant running fully offline.
Follow the user's instructions carefully. Answer clearly and admit when you do not know something.`,
	"mistral:7b-instruct": `You are a precise assistant running fully offline.
Keep answers short and factual; say so explicitly when the answer is not known to you.`,
}

// SystemPromptFor resolves the system prompt for a model, falling back to
// the default prompt.
func SystemPromptFor(model string) string {
	if p, ok := SystemPromptsByModel[model]; ok {
		return p
	}
	return DefaultSystemPrompt
}
