package main

import (
	"os"

	"github.com/psoff-tools/p7dtrace/internal/cli"
)

func main() {
	code := cli.Execute(os.Args[1:])
	os.Exit(code)
}
