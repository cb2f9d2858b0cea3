// Package feeds retrieves the four upstream result feeds (turnout,
// referendum, candidate directory, party directory) with bounded
// concurrency, per-source TTL response caching, and strict schema
// validation of decoded payloads. A fetch round has join-all semantics:
// any single failure fails the round, and the pipeline falls back to
// empty lookups rather than joining a partial snapshot.
package feeds
