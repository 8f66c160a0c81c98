// Package main provides the cachesim command, a set-associative LRU cache
// simulator driven by memory reference traces.
//
// Usage:
//
//	cachesim [-hv] -s <num> -E <num> -b <num> -t <file>
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
