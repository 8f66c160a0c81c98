// Package main points at the real command in ./cmd/cachesim.
package main

import (
	"fmt"
	"io"
	"os"
)

func run(w io.Writer) int {
	fmt.Fprintln(w, "cachesim: use 'go run ./cmd/cachesim -h'")
	return 2
}

func main() {
	os.Exit(run(os.Stderr))
}
