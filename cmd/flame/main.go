// Command flame renders fractal flames from the command line.
//
//	flame render --vars swirl,julia --frames 50 -o out.png
//	flame preview --size 800x600 --frames 10
//	flame variations
//	flame preset new.json --seed 7
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
