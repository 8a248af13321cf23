//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build builds the three binaries into bin/
func Build() error {
	mg.Deps(Vet, Test)

	for _, name := range []string{"apd", "replay", "inspect"} {
		fmt.Printf("Building %s...\n", name)
		if err := sh.RunV("go", "build",
			"-o", "bin/"+name,
			"-ldflags", "-s -w",
			"./cmd/"+name); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all unit tests with the race detector
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./...")
}

// Vet runs go vet across the module
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	os.RemoveAll("bin")
	os.RemoveAll("coverage.out")
	return nil
}
