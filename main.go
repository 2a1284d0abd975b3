package main

import (
	"os"

	"github.com/stoatbridge/stoatbridge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
