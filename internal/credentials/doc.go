// Package credentials persists the access/refresh token pair of the local session.
//
// The Store interface is the only way the rest of portalctl reads or writes
// tokens. Implementations do no validation; they only guarantee that a Load
// observes the most recent Save or Clear made in the same process, and that
// both tokens are written together.
//
// # Backends
//
//   - FileStore keeps a single JSON document under the user's config
//     directory (default ~/.config/portalctl/credentials.json). The directory
//     is created 0700 and the file 0600. Writes go through a temporary file
//     and a rename so readers never see half of a pair.
//   - MemoryStore keeps the pair in process memory.
//   - RedisStore keeps the pair in two Redis keys updated in one MULTI/EXEC
//     transaction, for hosts that share a session between processes.
//
// SECURITY: token values are never logged. Credentials implements
// fmt.Stringer and slog.LogValuer to print only whether each token is set.
package credentials
