package main

import (
	"os"

	"github.com/vobridge/vobridge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
