package main

import (
	"os"

	"meshchat/cmd/meshchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
