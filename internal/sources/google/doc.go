// Package google provides shared plumbing for Google API sources:
// service construction, token sourcing and request rate limiting.
package google
