// Package schema assembles the capability schema from fragment files.
//
// Fragments are YAML documents in one directory. They are read in filename
// order; the first becomes the base tree and every following fragment is
// folded in with Merge. The result is built once at startup and never
// mutated afterwards.
package schema
