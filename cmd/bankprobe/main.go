package main

import (
	"os"

	"github.com/msto63/bankprobe/cmd/bankprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
