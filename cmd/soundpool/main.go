// Command soundpool plays sounds through a pooled beep mixer, manages the
// persisted bus volumes and builds sound-bank files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "soundpool: %v\n", err)
		os.Exit(1)
	}
}
