package qa_service

import "github.com/tmc/langchaingo/prompts"

const condenseTemplate = `Given the following conversation and a follow-up question, rephrase the follow-up question to be a standalone question, in its original language.
Replace pronouns and references such as "it" or "that" with the things they refer to in the conversation.

Chat History:
{{.chat_history}}
Follow-up Question: {{.question}}
Standalone question:`

const answerTemplate = `You are an intelligent AI assistant. Answer the question based ONLY on the provided document context.
If the context does not contain the answer, say so instead of guessing.

IMPORTANT: Your output MUST be in valid JSON format with two keys:
- "answer": Your detailed response to the user.
- "quotes": A list of short, exact strings (excerpts) copied from the source text that justify your answer.

Example JSON output:
{
    "answer": "The project uses PostgreSQL.",
    "quotes": ["Database Type: You must use PostgreSQL", "local PostgreSQL instance"]
}

Context:
{{.context}}

Question: {{.question}}
JSON Response:`

func newCondensePrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(condenseTemplate, []string{"chat_history", "question"})
}

func newAnswerPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(answerTemplate, []string{"context", "question"})
}
