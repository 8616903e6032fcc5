package main

import (
	"log"

	"github.com/sentiq/screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
