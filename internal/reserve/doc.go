// Package reserve claims output paths before any content is written.
//
// A reservation is a zero-byte placeholder created with an exclusive create,
// so it is visible to every other process targeting the same directory. The
// file system is the only coordination point; nothing here holds a lock.
package reserve
