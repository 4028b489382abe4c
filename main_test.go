package main

import (
	"testing"
)

func TestMainPackage(t *testing.T) {
	// Command behaviour is covered in cmd.
	if testing.Short() {
		t.Skip("skipping main test in short mode")
	}
}
