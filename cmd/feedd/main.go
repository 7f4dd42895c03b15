package main

import (
	"log"

	"feedd/services/feedd"
)

func main() {
	if err := feedd.Main(); err != nil {
		log.Fatalf("feedd: %v", err)
	}
}
