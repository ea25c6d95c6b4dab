// Package persistence stores the client's credential records.
//
// Two records survive restarts: the AppRecord (identity and long-lived app
// token of this client as known to the device) and the SessionRecord (the
// cached short-lived session token). They are written together to a JSON
// state file. The app token can instead be kept in the OS keyring, in which
// case the state file only records that a secret exists.
package persistence
