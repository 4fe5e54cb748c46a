package main

import (
	"log"
	"os"

	"github.com/bjarke-xyz/fmh/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := cli.Execute(); err != nil {
		log.Printf("fmh: %v", err)
		os.Exit(1)
	}
}
