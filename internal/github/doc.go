// Package github fetches issues from the GitHub REST API through an
// in-memory TTL cache. It defines the Client, the Issue payload model, and
// the error taxonomy (not found, rate limited, upstream failure) that the
// API layer maps onto HTTP status codes.
package github
