// Package async resolves deferred responses.
//
// An operation may answer with an "accepted" status and a Link header that
// points at a monitor endpoint instead of its final result. Handler follows
// that link, polling the monitor with exponential backoff until it returns
// an embedded final response, and hands the caller either Continue with the
// resolved response or Stop with the reason it gave up.
//
// The handler moves through three states:
//
//	Dispatch  the primary response has arrived
//	Polling   the monitor is being queried
//	Resolved  a final response was found or polling was abandoned
//
// Sleeping between polls is the only blocking step and goes through a
// Sleeper so tests can observe the delay sequence.
package async
