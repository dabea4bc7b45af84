// Package media enumerates attached removable volumes. The replication
// core only consumes the device list; discovery stays here.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Device describes one removable volume.
type Device struct {
	ID         string // filesystem UUID when available, else the node
	Node       string // block device path, e.g. /dev/sdb1
	Label      string
	SizeBytes  int64
	Filesystem string
	Mountpoint string // empty when not mounted
}

func (d Device) String() string {
	label := d.Label
	if label == "" {
		label = "(no label)"
	}
	return fmt.Sprintf("%s %s %s", d.Node, label, d.Mountpoint)
}

// Provider lists removable volumes.
type Provider interface {
	List(ctx context.Context) ([]Device, error)
}

// lsblkDevice mirrors one entry of `lsblk -J -b` output.
type lsblkDevice struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Label      string        `json:"label"`
	UUID       string        `json:"uuid"`
	Size       int64         `json:"size"`
	Fstype     string        `json:"fstype"`
	Mountpoint string        `json:"mountpoint"`
	Type       string        `json:"type"`
	Hotplug    bool          `json:"hotplug"`
	Children   []lsblkDevice `json:"children"`
}

type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// LsblkProvider shells out to lsblk and keeps hotplug partitions. The
// Output hook exists so tests never require the binary.
type LsblkProvider struct {
	Output func(ctx context.Context) ([]byte, error)
}

// NewLsblkProvider returns a provider backed by the real lsblk binary.
func NewLsblkProvider() *LsblkProvider {
	return &LsblkProvider{
		Output: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "lsblk", "-J", "-b",
				"-o", "NAME,PATH,LABEL,UUID,SIZE,FSTYPE,MOUNTPOINT,TYPE,HOTPLUG").Output()
		},
	}
}

// List returns the attached removable volumes: hotplug devices with a
// filesystem, partitions preferred over their parent disk.
func (p *LsblkProvider) List(ctx context.Context) ([]Device, error) {
	raw, err := p.Output(ctx)
	if err != nil {
		return nil, fmt.Errorf("run lsblk: %w", err)
	}
	return ParseLsblk(raw)
}

// ParseLsblk decodes lsblk JSON output into the removable device list.
func ParseLsblk(raw []byte) ([]Device, error) {
	var out lsblkOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}

	var devices []Device
	for _, bd := range out.Blockdevices {
		if !bd.Hotplug {
			continue
		}
		if len(bd.Children) == 0 {
			if d, ok := toDevice(bd); ok {
				devices = append(devices, d)
			}
			continue
		}
		for _, child := range bd.Children {
			if d, ok := toDevice(child); ok {
				devices = append(devices, d)
			}
		}
	}
	return devices, nil
}

func toDevice(bd lsblkDevice) (Device, bool) {
	if bd.Fstype == "" {
		return Device{}, false
	}
	node := bd.Path
	if node == "" {
		node = "/dev/" + bd.Name
	}
	id := bd.UUID
	if id == "" {
		id = node
	}
	return Device{
		ID:         id,
		Node:       node,
		Label:      strings.TrimSpace(bd.Label),
		SizeBytes:  bd.Size,
		Filesystem: bd.Fstype,
		Mountpoint: bd.Mountpoint,
	}, true
}
