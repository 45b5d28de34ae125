// Package cli provides the interactive LearnHub command-line client.
//
// It wires configuration, local storage, the API client, the session manager
// and the live-session hub behind a small REPL. On start it restores the
// session persisted by the previous run, so a user stays signed in across
// restarts until the credential expires or is rejected.
//
// Commands:
//   - register, login, logout, me, avatar
//   - courses, newcourse, sections, reorder
//   - quiz <assessmentId> [minutes]
//   - live <sessionId>, say <text>, leave
//   - help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
