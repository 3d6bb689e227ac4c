package rag

import "strings"

// NoAnswerSentinel is what the model is told to reply when the context does
// not answer the query.
const NoAnswerSentinel = "I don't know!"

// qaTemplate is the fixed question-answering prompt.
const qaTemplate = "Context information is below.\n" +
	"---------------------\n" +
	"{context_str}\n" +
	"---------------------\n" +
	"\n" +
	"Given the context information and not prior knowledge, answer the query. " +
	"Please be concise, and complete. " +
	"If the context does not contain an answer to the query respond with " + NoAnswerSentinel + "\n" +
	"\n" +
	"Query: {query_str}\n" +
	"Answer: "

// RenderPrompt fills the QA template. Context chunks are joined with a blank
// line.
func RenderPrompt(query string, contexts []string) string {
	r := strings.NewReplacer(
		"{context_str}", strings.Join(contexts, "\n\n"),
		"{query_str}", query,
	)
	return r.Replace(qaTemplate)
}

// CleanAnswer removes every newline from an answer.
func CleanAnswer(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}
