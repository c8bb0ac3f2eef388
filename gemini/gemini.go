// Package gemini implements [docchat.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. Streaming uses the SDK's
// iter.Seq2 iterator, wrapped into the pull-based [docchat.Stream]
// interface; every visible text part becomes one fragment.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192

	defaultSystemPrompt = "Answer the user's question using only the document provided. " +
		"If the document does not contain the answer, say so."
)
