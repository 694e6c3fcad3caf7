/*
The hash tool constructs a hash of a media file excluding any metadata
(as recognised by the mediatag library). It folds in the role the
teacher's separate cmd/sum tool played, since both compute the same
metadata-invariant content hash.
*/
package main

import (
	"fmt"
	"os"

	"github.com/dhowden/mediatag/hash"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("usage: %v filename\n", os.Args[0])
		return
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Printf("error loading file: %v", err)
		os.Exit(1)
	}
	defer f.Close()

	h, err := hash.Sum(f)
	if err != nil {
		fmt.Printf("error constructing hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(h)
}
