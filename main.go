package main

import (
	"os"

	"github.com/trinio-labs/bake/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
