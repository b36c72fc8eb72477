//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "voxpref"

var Default = Build

// Build compiles the voxpref binary into ./bin
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", filepath.Join("bin", binary), "./cmd/voxpref")
}

// Test runs the unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the unit tests with the race detector
func Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install builds and copies the binary to $GOPATH/bin
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	dst := filepath.Join(gopath, "bin", binary)
	fmt.Println("Installing to", dst)
	return sh.Copy(dst, filepath.Join("bin", binary))
}

// Clean removes build output
func Clean() error {
	return os.RemoveAll("bin")
}
