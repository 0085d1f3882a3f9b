// Package chat keeps conversation state and runs persona chat turns.
//
// A turn resolves the persona, builds a grounded prompt from the session
// history, calls the generator and, only when a reply was produced, appends
// the user message and the reply to the session in one write. A failed turn
// leaves the session exactly as it was.
package chat
