package main

import (
	"os"

	"github.com/offlinefirst/episodic/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
