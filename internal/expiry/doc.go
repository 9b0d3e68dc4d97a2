// Package expiry implements the background sweep that retires expired posts
// from the database, external media storage, and live subscribers.
package expiry
