package domain

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// FormatFlags select what Format includes in its output.
type FormatFlags uint

const (
	// FormatSecure keeps secrets (graphics passwords) in the output.
	FormatSecure FormatFlags = 1 << iota

	// FormatInactive emits the persistent configuration: no hypervisor id,
	// pty paths, auto-allocated ports or generated target names.
	FormatInactive

	// FormatMigratable produces output suitable for sending to another
	// host: like inactive for runtime identifiers, but live device state
	// is kept.
	FormatMigratable

	// FormatUpdateCPU drops the expanded host-model CPU definition so the
	// destination re-derives it.
	FormatUpdateCPU

	// FormatInternalStatus marks output destined for the status file rather
	// than a user; secrets and runtime state are kept verbatim.
	FormatInternalStatus
)

// Format serializes a definition. The caller's definition is never touched;
// scrubbing happens on a deep copy.
func Format(def *Definition, flags FormatFlags) ([]byte, error) {
	out, err := def.DeepCopy()
	if err != nil {
		return nil, err
	}
	if flags&FormatInternalStatus == 0 {
		if flags&FormatSecure == 0 {
			scrubSecrets(out)
		}
		if flags&FormatInactive != 0 {
			scrubRuntimeState(out)
		}
		if flags&FormatMigratable != 0 {
			out.ID = nil
			scrubAutoPorts(out)
		}
		if flags&FormatUpdateCPU != 0 && out.CPU != nil && out.CPU.Mode == "host-model" {
			out.CPU.Model = nil
			out.CPU.Features = nil
		}
	}
	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding domain XML: %w", err)
	}
	return append(data, '\n'), nil
}

func scrubSecrets(def *Definition) {
	for _, g := range def.Devices.Graphics {
		g.Passwd = ""
		g.PasswdValidTo = ""
	}
}

// scrubRuntimeState removes everything a fresh start would reassign.
func scrubRuntimeState(def *Definition) {
	def.ID = nil
	scrubAutoPorts(def)
	for _, c := range def.Devices.Consoles {
		c.TTY = ""
	}
	_ = def.Devices.forEach(func(dev any, _ *DeviceInfo) error {
		if src := chardevSourceOf(dev); src != nil && src.Pty != nil {
			src.Pty.Path = ""
		}
		return nil
	})
	for _, iface := range def.Devices.Interfaces {
		if iface.Target != nil && generatedIfaceName(iface.Target.Dev) {
			iface.Target = nil
		}
	}
	for _, l := range def.SecLabels {
		if l.Type == SecLabelDynamic {
			l.Label = ""
			l.ImageLabel = ""
		}
	}
}

func scrubAutoPorts(def *Definition) {
	for _, g := range def.Devices.Graphics {
		if g.AutoPort == "yes" {
			g.Port = nil
			g.TLSPort = nil
		}
	}
}

// generatedIfaceName matches the tap names drivers hand out at start.
func generatedIfaceName(dev string) bool {
	return strings.HasPrefix(dev, "vnet") || strings.HasPrefix(dev, "vif")
}
