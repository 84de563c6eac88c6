package main

import (
	"os"

	"github.com/yanqian/faqbot/cmd/faqctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
