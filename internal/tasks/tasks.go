// package tasks implements the playlist and track synchronization engines.
//
// The engines orchestrate operations across the remote service and the local
// store: they consult the credential manager (via the service's token source)
// before any remote call, translate natural keys to remote IDs through
// [Resolver], perform the remote mutation, and only then commit the mirrored
// change locally. Remote failures abort the local write; local failures after
// a successful remote mutation are surfaced as drift, never hidden.
package tasks

import (
	"github.com/desertthunder/mixtape/internal/services"
)

// batchURIs splits a URI list into chunks no larger than the remote API's
// per-call limit.
func batchURIs(uris []string) [][]string {
	var batches [][]string
	for len(uris) > 0 {
		n := services.MaxItemsPerCall
		if len(uris) < n {
			n = len(uris)
		}
		batches = append(batches, uris[:n])
		uris = uris[n:]
	}
	return batches
}

// uniqueStrings deduplicates while preserving first-seen order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
