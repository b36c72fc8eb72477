// Package audio validates the pronunciation samples a user records or picks
// and describes them as references the workflow can store and upload later.
// Local files are checked for existence, size, and an audio MIME type; http
// URLs are accepted as-is and downloaded on demand.
package audio
