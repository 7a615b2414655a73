package main

import (
	"os"

	"github.com/yuxiji/scenetalk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
