package main

import (
	"os"

	"protofuzz/internal/harness"
)

func main() {
	os.Exit(harness.Main(os.Args, os.Stderr, harness.HTTPTarget))
}
