// Package cli implements the boatlog command line: account and device
// commands, logbook editing, sync, share export, chunk scanning, queue
// inspection and the background daemon.
//
// Every command opens the local database on first use through env.App and
// the App is closed when the command returns.
package cli
