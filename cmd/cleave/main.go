// Command cleave runs scene scripts headless: it checks them, slices
// meshes through a virtual pointer and steps the physics world.
package main

import (
	"errors"
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("cleave: ")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalidScript) {
			log.Print(err)
		}
		os.Exit(1)
	}
}
