package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jferreira/maitrenotifie/core/roster"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	repo      roster.Repository
	rosterSvc *roster.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  import -file PATH - import a roster spreadsheet (xlsx, xls or csv) into the store")
	fmt.Println("  seed              - reset the store to the sample roster")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "Path of the roster file to import.")

	switch args[1] {
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importRoster(*importFile)
	case "seed":
		return cli.seed()
	default:
		cli.printUsage()
		return errHelp
	}
}

// importRoster merges the classes of the given spreadsheet into the
// configured store.
func (cli *commandLine) importRoster(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	count, err := cli.rosterSvc.ImportFile(context.Background(), f, path)
	if err != nil {
		return err
	}
	fmt.Printf("%d classe(s) traitée(s) avec succès.\n", count)
	return nil
}

// seed overwrites the configured store with the sample roster.
func (cli *commandLine) seed() error {
	if err := cli.repo.SaveRoster(context.Background(), roster.Seed()); err != nil {
		return err
	}
	fmt.Println("sample roster written")
	return nil
}
