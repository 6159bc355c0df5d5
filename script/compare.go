package main

import (
	"flag"
	"log"

	"github.com/aquasecurity/vulner/pkg/feed"
)

var (
	oldFeedFile = flag.String("old_file", "/tmp/vulner/feeds/json/old.json", "old CPE match feed")
	newFeedFile = flag.String("new_file", "/tmp/vulner/feeds/json/"+feed.FileName, "new CPE match feed")
)

func main() {
	flag.Parse()
	oldIdx := load(*oldFeedFile)
	newIdx := load(*newFeedFile)

	log.Printf("=== got %d CPEs from old feed and %d from new feed ===", oldIdx.Len(), newIdx.Len())
	for _, cpe := range oldIdx.Entries() {
		if !newIdx.Contains(cpe) {
			log.Printf("CPE %s does not exist in new feed", cpe)
		}
	}
	for _, cpe := range newIdx.Entries() {
		if !oldIdx.Contains(cpe) {
			log.Printf("CPE %s is new", cpe)
		}
	}
}

func load(path string) *feed.Index {
	idx, err := feed.Load(path)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	return idx
}
