package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/parley/internal/client"
)

// cmdStart launches parleyd for the profile unless one already serves, then
// waits until it answers.
func cmdStart(g globals) {
	if addr, err := client.Discover(g.profile); err == nil && client.Probe(addr) {
		fmt.Printf("daemon already running at %s\n", addr)
		return
	}

	if err := startDaemon(g.profile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
		os.Exit(1)
	}
	addr, ok := client.WaitReady(g.profile, 10*time.Second)
	if !ok {
		fmt.Fprintln(os.Stderr, "daemon did not become ready")
		os.Exit(1)
	}
	fmt.Printf("daemon serving at %s\n", addr)
}

func startDaemon(profileName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	parleyd := filepath.Join(filepath.Dir(executable), "parleyd")

	if _, err := os.Stat(parleyd); err != nil {
		parleyd = "parleyd"
	}

	cmd := exec.Command(parleyd, "--profile", profileName)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
