// Package reconcile joins the raw feed records into five resolved
// per-constituency lookups: winner, party-list summary, referendum
// summary, turnout diff, and ballot forensics. Joins skip
// province-level summary rows and fail open on missing
// cross-references, substituting sentinel values instead of raising.
package reconcile
