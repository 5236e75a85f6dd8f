// Package server exposes the read side of the store over HTTP for
// dashboards and search clients. It never touches the inbox; everything it
// reports is computed on demand from the repositories.
package server
