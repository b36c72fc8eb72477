// Package phonetic holds the target word a user wants pronounced, together
// with the IPA transcription the backend produced for it. It also provides
// LLM-backed explanations of IPA transcriptions, symbol by symbol, through
// OpenAI chat models or Google Gemini.
package phonetic
