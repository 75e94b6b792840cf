// Command gen-scenario writes an annotated example scenario file to
// start new configurations from.
package main

import (
	"flag"
	"log"

	"github.com/groundsight-data/groundsight/internal/config"
)

func main() {
	output := flag.String("o", "scenario.json", "output path")
	flag.Parse()

	sc := config.ExampleScenario()
	if err := sc.Save(*output); err != nil {
		log.Fatalf("Failed to write scenario: %v", err)
	}
	log.Printf("✓ Created: %s", *output)
}
