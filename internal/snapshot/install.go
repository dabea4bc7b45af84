package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// RecoveryTool is the external file-carving utility used for recovery
// beyond what snapshots can offer.
const RecoveryTool = "testdisk"

// ErrToolInstall reports a failed tool installation. Callers treat it
// as non-fatal: snapshot-based recovery works without the tool.
var ErrToolInstall = errors.New("recovery tool install failed")

// Installer checks for and installs the external recovery utility
// through the platform's package mechanism. The lookup and run hooks
// exist so tests never shell out.
type Installer struct {
	LookPath func(name string) (string, error)
	Run      func(ctx context.Context, name string, args ...string) error
}

// NewInstaller returns an Installer backed by the real exec package.
func NewInstaller() *Installer {
	return &Installer{
		LookPath: exec.LookPath,
		Run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// packageManagers lists the supported install mechanisms, tried in
// order of detection.
var packageManagers = []struct {
	bin  string
	args []string
}{
	{"apt-get", []string{"install", "-y", RecoveryTool}},
	{"dnf", []string{"install", "-y", RecoveryTool}},
	{"pacman", []string{"-S", "--noconfirm", RecoveryTool}},
}

// EnsureTool installs the recovery utility if it is not already
// present. Returns (true, nil) when the tool is available afterwards,
// (false, ErrToolInstall-wrapped) when it could not be installed.
func (i *Installer) EnsureTool(ctx context.Context) (bool, error) {
	if _, err := i.LookPath(RecoveryTool); err == nil {
		return true, nil
	}

	for _, pm := range packageManagers {
		if _, err := i.LookPath(pm.bin); err != nil {
			continue
		}
		if err := i.Run(ctx, pm.bin, pm.args...); err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrToolInstall, pm.bin, err)
		}
		if _, err := i.LookPath(RecoveryTool); err == nil {
			return true, nil
		}
		return false, fmt.Errorf("%w: %s reported success but %s still missing", ErrToolInstall, pm.bin, RecoveryTool)
	}

	return false, fmt.Errorf("%w: no supported package manager found", ErrToolInstall)
}
