// Package inventory is the live registry of devices that have announced
// themselves on the bus, with their last known state and measurements.
//
// Entries are created by announcements and survive until an explicit
// removal. State and values are carried across re-announcements. The
// inventory can be mirrored to a JSON file so that a restarted resolver
// starts warm.
//
// Inventory is not safe for concurrent use. The resolver owns it from a
// single goroutine.
package inventory
