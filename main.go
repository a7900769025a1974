package main

import (
	"os"

	"github.com/dixie/callvehicle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
