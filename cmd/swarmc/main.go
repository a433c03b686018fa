package main

import (
	"os"

	"github.com/swarmlang/swarm/cmd/swarmc/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
