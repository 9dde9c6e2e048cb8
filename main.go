package main

import (
	"log"

	"borrow_analytics/config"
)

func main() {
	config.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("borrowd: %v", err)
	}
}
