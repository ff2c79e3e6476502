package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/storage"
)

// inspect dumps the suggestion document from a storage backend without
// going through the server. Useful for checking what is actually on disk
// after an incident or a migration.
func main() {
	var (
		path    = flag.String("path", "./data/suggestions.yml", "suggestion document path")
		backend = flag.String("backend", "yaml", "storage backend (yaml|pebble)")
		verbose = flag.Bool("v", false, "print descriptions and vote lists")
	)
	flag.Parse()

	logger.Init()

	b, err := storage.Open(*backend, *path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s storage at %s: %v\n", *backend, *path, err)
		os.Exit(1)
	}
	defer b.Close()

	recs, err := b.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load records: %v\n", err)
		os.Exit(1)
	}

	if fi, err := os.Stat(*path); err == nil && !fi.IsDir() {
		fmt.Printf("document: %s (%s)\n", *path, humanize.Bytes(uint64(fi.Size())))
	} else {
		fmt.Printf("document: %s\n", *path)
	}
	fmt.Printf("records:  %d\n\n", len(recs))

	ids := make([]string, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := recs[id]
		age := r.CreatedAt
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			age = humanize.Time(t)
		}
		fmt.Printf("%-8s %-40q by %s (%s)  +%d/-%d\n", r.ID, r.Title, r.AuthorName, age, len(r.Upvotes), len(r.Downvotes))
		if *verbose {
			fmt.Printf("         desc: %s\n", r.Description)
			if r.AdminResponse != "" {
				fmt.Printf("         response: %s\n", r.AdminResponse)
			}
			if len(r.Upvotes) > 0 {
				fmt.Printf("         up: %v\n", r.Upvotes)
			}
			if len(r.Downvotes) > 0 {
				fmt.Printf("         down: %v\n", r.Downvotes)
			}
		}
	}
}
