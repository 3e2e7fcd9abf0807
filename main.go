package main

import (
	"os"

	"github.com/charmbracelet/log"

	"Micronet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
