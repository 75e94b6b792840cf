// Command groundsight measures how far the flat-plane georeferencing
// shortcut drifts from true ray/terrain intersection for aerial
// imagery, and serves the accumulated runs over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/groundsight-data/groundsight/internal/db"
	"github.com/groundsight-data/groundsight/internal/monitoring"
	"github.com/groundsight-data/groundsight/internal/version"
)

var (
	devMode  = flag.Bool("dev", false, "Run in dev mode (per-pose progress logging)")
	listen   = flag.String("listen", ":8080", "Listen address")
	dbPath   = flag.String("db", "groundsight.db", "SQLite database path")
	scenario = flag.String("config", "", "Scenario to start automatically in serve mode")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	monitoring.SetDebug(*devMode)

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		runServe(*dbPath, *listen, *scenario)
	case "simulate":
		runSimulate(args)
	case "gen-dem":
		runGenDEM(args)
	case "migrate":
		db.RunMigrateCommand(args, *dbPath)
	case "report":
		runReport(args)
	case "version":
		fmt.Printf("groundsight %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`groundsight - planar georeferencing error measurement

Usage: groundsight [flags] <command> [options]

Commands:
  serve      Start the HTTP monitor over the run store (default)
  simulate   Run a scenario to completion and export its results
  gen-dem    Write a synthetic elevation grid as an ESRI ASCII file
  migrate    Manage the database schema (up, down, status, version, force)
  report     Re-export CSV and charts for a stored run
  version    Show version information
  help       Show this help message

Serve flags (before the command):
  -listen <addr>   HTTP listen address (default :8080)
  -db <path>       SQLite database path (default groundsight.db)
  -config <file>   Scenario JSON to start automatically once serving
  -dev             Per-pose progress logging

Examples:
  groundsight -listen :8080 serve
  groundsight simulate -config scenario.json -out results
  groundsight gen-dem -source hills -size-km 5 -out hills.asc
  groundsight migrate status
  groundsight report -out results 2f1c`)
}
