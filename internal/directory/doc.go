// Package directory is the durable store of human-assigned names and
// spatial placement: device names and rooms, rooms, floorplans with device
// placements, and locations.
//
// Entries here are independent of whether a device is currently announced
// on the bus; the live inventory copies name and room from the directory
// when a device (re)announces.
//
// Every write is read back and compared with the value written. A call
// succeeds only when the round trip matches, whatever the driver reported.
// Deletions that touch several tables run in one transaction that commits
// only when the primary row is gone afterwards.
//
// SQLiteDirectory is not safe for concurrent writers. The resolver calls it
// from its single reactor goroutine.
package directory
