// Copyright 2025 Certen Protocol
//
// relayer drives the cobra command tree assembled in pkg/relayer/cli,
// exiting 0 on success, 1 on configuration error, 2 on runtime error.
package main

import (
	"os"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/cli"
)

func main() {
	os.Exit(cli.Execute())
}
