// Package page defines the on-disk layout of a relation page and the
// validation rules a backup tool must apply before trusting one.
//
// A Page is an immutable byte sequence of exactly BlockSize bytes. Its
// leading HeaderSize bytes carry a Header describing the page's log
// sequence number, its free-space pointers and a checksum. Validate
// classifies a raw buffer against the header invariants the owning
// engine guarantees for every page it ever writes.
package page
