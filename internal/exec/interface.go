// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the parent environment.
	Env []string
	// Stdin is written to the process's standard input.
	Stdin string
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	Run(ctx context.Context, cmd Command) (output []byte, err error)
}

// Shell builds a Command that runs script through "sh -c".
func Shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}
