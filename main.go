package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "TickDB-Engine"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Vectorized CSV-to-Arrow parsing engine for tick data")
	fmt.Println("Status: Development")
	os.Exit(0)
}
