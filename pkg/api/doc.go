// Package api provides typed calls for the gateway login endpoints.
//
// Endpoints (relative to the versioned API path):
//
//	POST /login/authorize             register an application
//	GET  /login/authorize/{track_id}  poll the authorization status
//	GET  /login                       login status and challenge
//	POST /login/session               open a session
//	POST /login/logout/               close a session
//
// plus GET /api_version at the device root. Privileged calls outside this
// package attach AuthHeader(token).
package api
