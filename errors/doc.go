/*
Package errors provides semantic error types for the DocStore library.

Every failure is classified by a Code mirroring the remote store's failure
taxonomy. Errors can be checked with the standard errors.Is() function, the
provided helper functions, or by extracting the code:

	err := txn.Commit(ctx)
	if err != nil {
	    if errors.IsAborted(err) {
	        // conflicting concurrent write, safe to retry in a new transaction
	    }
	    return err
	}

	switch errors.CodeOf(err) {
	case errors.AlreadyExists:
	    // add against an existing key, not retryable
	case errors.Aborted:
	    // optimistic-concurrency conflict, retryable
	}

Local violations (malformed keys, use of a submitted batch) are reported
synchronously with InvalidArgument or FailedPrecondition before any network
call; AlreadyExists, NotFound and Aborted surface only after a commit round
trip.

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
