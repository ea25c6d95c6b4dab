// Package auth implements application pairing and session management.
//
// # Overview
//
// The device authorizes applications, not users. An application registers
// once and receives a long-lived app token (the shared secret). A human then
// approves the request on the device itself. From then on the application
// opens short-lived sessions by answering a challenge:
//
//	password = hex(HMAC-SHA1(key = app token, message = challenge))
//
// The app token is never sent again after it is issued.
//
// # Pairing Flow
//
//  1. RegisterApplication posts the identity to /login/authorize and stores
//     a Pending record holding the app token and track id
//  2. WaitForAuthorization polls /login/authorize/{track_id} every
//     PollInterval until the device reports granted, denied or timeout
//  3. NegotiateSession fetches a challenge from /login and opens a session
//     at /login/session
//
// Pair runs all three steps.
//
// # Session Guard
//
// EnsureSession is the single entry point for privileged calls. It never
// pairs implicitly. It probes /login with the cached session token and
// renews exactly once when the device reports the session as gone. Network
// failures during the probe are returned as is, so an outage is never
// mistaken for an expired session.
//
// # Errors
//
// RemedyFor classifies any returned error as re-pair, retry later, or check
// the network.
package auth
