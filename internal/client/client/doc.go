// Package client is the remote gateway: a small HTTP/JSON client for the
// boatlog server's record API.
//
// # Overview
//
// The Client interface covers authentication (Register, Login), per-type
// record CRUD (List, Get, Create, Update, Patch, Delete) and photo uploads
// (PhotoUploadURL followed by Upload to the presigned URL). HTTPClient is the
// implementation used by the CLI; sync handlers and tests depend on the
// interface only.
//
// # Error Handling
//
// Responses are mapped to sentinel errors that callers match with errors.Is:
// ErrUnavailable for transport failures and 5xx answers, ErrUnauthorized for
// 401/403, ErrNotFound for 404 and ErrConflict for 409.
//
// # Authentication
//
// Every record call asks the configured TokenSource for a bearer token. A
// TokenSource that fails (for instance because the stored token expired)
// aborts the call before anything is sent.
package client
