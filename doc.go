// Package account implements a progressive signup and session flow: accounts
// are registered with an email and password, verified through an emailed
// one-time token, and finalized by claiming a unique username.
//
// User lifecycle:
//   - Users carry a UserStatus field that is persisted via Bun. Statuses move
//     strictly forward through pending, verified, and active; the
//     UserStateMachine centralizes the transition graph, hooks, and
//     persistence.
//   - Session JWTs mirror the lifecycle: tokens minted after email
//     verification assert a verified email, and tokens minted on login or
//     finalization assert full authentication. Stage derives the client-facing
//     UNVERIFIED / VERIFIED / FULLY_AUTHENTICATED answer from claims alone.
//
// Sessions travel in an HttpOnly, SameSite strict cookie managed by
// SessionCookies. Status probes never fail: requests without a usable cookie
// degrade to the unverified stage.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by command handlers,
//     the Auther, and the state machine to describe registration,
//     verification, finalization, and login events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package account
