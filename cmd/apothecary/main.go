// apothecary manages the storage behind the wedding site.
//
// # Commands
//
//	apothecary setup               Create every table, optionally fresh, optionally seeded
//	apothecary dump-rsvp           Write final RSVPs (those with a meal preference) as CSV
//	apothecary dump-save-the-date  Write every RSVP as CSV
//	apothecary tables              Show the status of every table
//	apothecary check               Show the AWS identity behind the current credentials
//
// # Quick Start
//
// Create prefixed tables in DynamoDB Local and load the bundled content:
//
//	apothecary setup --endpoint http://localhost:8000 --user-prefix --seed default
//
// Or try everything on disk without AWS:
//
//	apothecary setup --backend badger --data-dir ./data --seed default
//	apothecary dump-save-the-date --backend badger --data-dir ./data
package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "setup":
		err = runSetup(args)
	case "dump-rsvp", "dump_rsvp":
		err = runDump(cmd, args, true)
	case "dump-save-the-date", "dump_save_the_date":
		err = runDump(cmd, args, false)
	case "tables":
		err = runTables(args)
	case "check":
		err = runCheck(args)
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("apothecary version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "apothecary: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "apothecary %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`apothecary - storage tools for the wedding site

Usage:
  apothecary <command> [flags]

Commands:
  setup               Create tables (--fresh-tables recreates them, --seed FILE|default loads content)
  dump-rsvp           Write RSVPs with a meal preference as CSV to standard output
  dump-save-the-date  Write every RSVP as CSV to standard output
  tables              Show the status of every table
  check               Show the AWS identity behind the current credentials
  version             Print the version

Common flags:
  --config FILE       Config file (default: nearest apothecary.yaml)
  --backend NAME      dynamodb, memory or badger
  --prefix PREFIX     Table name prefix
  --user-prefix       Use "<os user>_" as the table name prefix
  --data-dir DIR      Badger data directory
  --endpoint URL      DynamoDB endpoint override, e.g. http://localhost:8000
  --region REGION     AWS region
  --log-level LEVEL   debug, info, warn or error
  --log-file FILE     Write logs to FILE instead of standard error

Configuration (optional):
  Create apothecary.yaml, or set APOTHECARY_* variables:

    backend: dynamodb
    tablePrefix: dev_
    region: us-east-1
    logLevel: info

Run 'apothecary <command> --help' for more information on a command.`)
}
