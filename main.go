package main

import (
	"os"

	"github.com/jobsense/jobsense/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
