/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/strandsoft/docstore"
	"github.com/strandsoft/docstore/datastore"
	_ "github.com/strandsoft/docstore/datastore/ddb"
	_ "github.com/strandsoft/docstore/datastore/memstore"
	"github.com/strandsoft/docstore/registry"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	configFlag  = flag.String("config", "", "Path to a YAML options file (default: environment)")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dsadmin [flags] <command> [args]

Commands:
  drivers                 list registered drivers
  get <kind> <name>       fetch an entity by kind and key name
  delete <kind> <name>    delete an entity by kind and key name
  allocate <kind> <n>     allocate n fresh ids for a kind
  list <kind>             list key strings of a kind

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		info := docstore.GetVersionInfo()
		fmt.Printf("dsadmin version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "drivers" {
		for _, name := range registry.Drivers() {
			fmt.Println(name)
		}
		return
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "dsadmin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := docstore.OptionsFromEnv()
	if *configFlag != "" {
		loaded, err := docstore.LoadOptions(*configFlag)
		if err != nil {
			return err
		}
		opts = loaded
	}
	ds, err := docstore.Open(opts)
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch args[0] {
	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: get <kind> <name>")
		}
		key, err := ds.NewKeyFactory(args[1]).NewKeyWithName(args[2])
		if err != nil {
			return err
		}
		e, err := ds.Get(ctx, key)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("no entity for %s", key)
		}
		printEntity(e)
		return nil

	case "delete":
		if len(args) != 3 {
			return fmt.Errorf("usage: delete <kind> <name>")
		}
		key, err := ds.NewKeyFactory(args[1]).NewKeyWithName(args[2])
		if err != nil {
			return err
		}
		return ds.Delete(ctx, key)

	case "allocate":
		if len(args) != 3 {
			return fmt.Errorf("usage: allocate <kind> <n>")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[2])
		}
		factory := ds.NewKeyFactory(args[1])
		partials := make([]*datastore.PartialKey, n)
		for i := range partials {
			pk, err := factory.NewKey()
			if err != nil {
				return err
			}
			partials[i] = pk
		}
		keys, err := ds.AllocateIDs(ctx, partials...)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil

	case "list":
		if len(args) != 2 {
			return fmt.Errorf("usage: list <kind>")
		}
		res, err := ds.Run(ctx, datastore.NewQuery(args[1]).KeysOnly())
		if err != nil {
			return err
		}
		for res.HasNext() {
			row, err := res.Next()
			if err != nil {
				return err
			}
			fmt.Println(row.(*datastore.Key))
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printEntity(e *datastore.Entity) {
	fmt.Println(e.Key())
	for _, name := range e.Names() {
		v, err := e.GetValue(name)
		if err != nil {
			continue
		}
		fmt.Printf("  %s (%s) = %v\n", name, v.Type(), v.Get())
	}
}
