// Package levelstore stores level packs.
//
// A pack is an ordered list of level texts numbered from 1. PackStore serves a
// directory (writable) or the pack embedded in the binary (read-only), with
// the order taken from pack.yaml:
//
//	name: Default
//	levels:
//	  - file: level1.txt
//	    name: First Steps
//
// PostgresStore keeps packs in a database table created by the embedded goose
// migrations; Import copies any other store into it.
package levelstore
