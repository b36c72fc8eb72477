// Package api is the HTTP client for the pronunciation backend and the
// scoring service. It covers the three endpoints the workflow needs:
//
//	POST /ipa            form-encoded target_word, returns the IPA transcription
//	POST /analyze        multipart audio sample plus target_word, opaque JSON
//	POST /save-rankings  JSON criteria weights plus the word, returns the ranking
//
// Every request carries an explicit timeout and is never retried. A circuit
// breaker fails requests fast once the backend keeps returning transport
// errors or 5xx responses.
package api
