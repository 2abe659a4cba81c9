// Package miro is a client for the Miro REST API v2 and a [board.Board]
// implementation on top of it.
//
// Every request goes through a shared [httputil.Limiter] and is retried
// with [httputil.Retry]; failures carry both an error code from pkg/errors
// and the HTTP status, so callers can branch on either:
//
//	client := miro.NewClient(tokenSource, miro.WithLimiter(limiter))
//	shapes, err := client.Items(ctx, boardID, "shape")
//	if httputil.IsUnauthorized(err) {
//	    // send the user through /auth/login again
//	}
//
// The REST API has no notion of a batch. [Board] emulates one: it records
// the items created since StartBatch and AbortBatch deletes them again.
// Updates and deletions inside an aborted batch are not undone.
package miro
