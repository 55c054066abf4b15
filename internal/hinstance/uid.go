// Package hinstance identifies the current bake process for use in
// temp-file names and lock files, so two concurrent bake runs never
// collide on the same path.
package hinstance

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// UID is a process-unique identifier, stable for the lifetime of this
// process and unique across concurrently running bake processes on the
// same machine.
var UID = gen()

func gen() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%d_%s_%s", os.Getpid(), host, uuid.NewString())
}
