// Command lexis searches a corpus of documents held in memory.
//
// A corpus is a TOML or JSON file listing documents and how to split them
// into shards and segments:
//
//	default_field = "body"
//	shards = 2
//	keyword_fields = ["price"]
//
//	[[documents]]
//	body = "full text search"
//	price = "10"
//
// Queries are either plain words, searched as optional terms of the default
// field, or the path of a query file (see package querydsl).
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
