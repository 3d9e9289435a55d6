package main

import (
	"os"

	"quill/service"
)

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain runs the CLI and exits with its status
func RealMain() {
	exit(service.Execute())
}
