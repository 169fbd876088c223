// Package services holds the application core: the sync coordinator
// that reconciles document sources against the index store, the answer
// engine that grounds generation in retrieved chunks, and the scheduler
// that drives periodic and change-triggered syncs. Everything here
// speaks only through the port interfaces.
package services
