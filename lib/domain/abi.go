package domain

import (
	"fmt"
)

// CheckABIStability verifies that dst describes the same guest-visible
// machine as src: identity, memory and vcpu geometry, firmware-visible
// tables, and every device's identity and bus placement. It returns nil
// when the two are interchangeable for a running guest, otherwise an error
// wrapping ErrABIMismatch that names the first differing field.
func CheckABIStability(src, dst *Definition) error {
	if src.Type != dst.Type {
		return mismatch("domain type", src.Type, dst.Type)
	}
	if src.UUID != dst.UUID {
		return mismatch("domain uuid", src.UUID, dst.UUID)
	}
	if err := memoryCompat(src, dst); err != nil {
		return err
	}
	if src.MaxVCPUs() != dst.MaxVCPUs() {
		return mismatch("maximum vcpus", src.MaxVCPUs(), dst.MaxVCPUs())
	}
	if src.CurrentVCPUs() != dst.CurrentVCPUs() {
		return mismatch("current vcpus", src.CurrentVCPUs(), dst.CurrentVCPUs())
	}
	if err := osCompat(&src.OS, &dst.OS); err != nil {
		return err
	}
	if err := featuresCompat(src.Features, dst.Features); err != nil {
		return err
	}
	if err := timersCompat(src.Clock, dst.Clock); err != nil {
		return err
	}
	if err := cpuCompat(src.CPU, dst.CPU); err != nil {
		return err
	}
	if err := sysInfoCompat(src.SysInfo, dst.SysInfo); err != nil {
		return err
	}
	return devicesCompat(src, dst)
}

func mismatch(field string, src, dst any) error {
	return fmt.Errorf("%w: %s: source %v, target %v", ErrABIMismatch, field, src, dst)
}

func memoryCompat(src, dst *Definition) error {
	srcMax, dstMax := memKiB(src.Memory), memKiB(dst.Memory)
	if srcMax != dstMax {
		return mismatch("maximum memory", srcMax, dstMax)
	}
	srcCur, dstCur := memKiB(src.CurrentMemory), memKiB(dst.CurrentMemory)
	if srcCur != dstCur {
		return mismatch("current memory", srcCur, dstCur)
	}
	return nil
}

func memKiB(m *Memory) uint64 {
	if m == nil {
		return 0
	}
	return m.Value
}

func osCompat(src, dst *OS) error {
	if src.Type.ID != dst.Type.ID {
		return mismatch("os type", src.Type.ID, dst.Type.ID)
	}
	if src.Type.Arch != dst.Type.Arch {
		return mismatch("os arch", src.Type.Arch, dst.Type.Arch)
	}
	if src.Type.Machine != dst.Type.Machine {
		return mismatch("os machine", src.Type.Machine, dst.Type.Machine)
	}
	srcMode, dstMode := smbiosMode(src), smbiosMode(dst)
	if srcMode != dstMode {
		return mismatch("smbios mode", srcMode, dstMode)
	}
	return nil
}

func smbiosMode(os *OS) SMBiosMode {
	if os.SMBios == nil {
		return SMBiosEmulate
	}
	return os.SMBios.Mode
}

func featuresCompat(src, dst *Features) error {
	if (src == nil) != (dst == nil) {
		return mismatch("features", src != nil, dst != nil)
	}
	if src == nil {
		return nil
	}
	flag := func(e *Empty) bool { return e != nil }
	if flag(src.ACPI) != flag(dst.ACPI) {
		return mismatch("feature acpi", flag(src.ACPI), flag(dst.ACPI))
	}
	if (src.APIC != nil) != (dst.APIC != nil) {
		return mismatch("feature apic", src.APIC != nil, dst.APIC != nil)
	}
	if src.APIC != nil && src.APIC.EOI != dst.APIC.EOI {
		return mismatch("feature apic eoi", src.APIC.EOI, dst.APIC.EOI)
	}
	if flag(src.PAE) != flag(dst.PAE) {
		return mismatch("feature pae", flag(src.PAE), flag(dst.PAE))
	}
	if flag(src.HAP) != flag(dst.HAP) {
		return mismatch("feature hap", flag(src.HAP), flag(dst.HAP))
	}
	if flag(src.Viridian) != flag(dst.Viridian) {
		return mismatch("feature viridian", flag(src.Viridian), flag(dst.Viridian))
	}
	if flag(src.PrivNet) != flag(dst.PrivNet) {
		return mismatch("feature privnet", flag(src.PrivNet), flag(dst.PrivNet))
	}
	return hyperVCompat(src.HyperV, dst.HyperV)
}

func hyperVCompat(src, dst *FeatureHyperV) error {
	if (src == nil) != (dst == nil) {
		return mismatch("feature hyperv", src != nil, dst != nil)
	}
	if src == nil {
		return nil
	}
	state := func(f *HyperVFeature) string {
		if f == nil {
			return ""
		}
		return f.State
	}
	if state(src.Relaxed) != state(dst.Relaxed) {
		return mismatch("hyperv relaxed", state(src.Relaxed), state(dst.Relaxed))
	}
	if state(src.VAPIC) != state(dst.VAPIC) {
		return mismatch("hyperv vapic", state(src.VAPIC), state(dst.VAPIC))
	}
	srcSpin, dstSpin := src.Spinlocks, dst.Spinlocks
	if (srcSpin == nil) != (dstSpin == nil) {
		return mismatch("hyperv spinlocks", srcSpin != nil, dstSpin != nil)
	}
	if srcSpin != nil {
		if srcSpin.State != dstSpin.State {
			return mismatch("hyperv spinlocks state", srcSpin.State, dstSpin.State)
		}
		if !uintPtrEq(srcSpin.Retries, dstSpin.Retries) {
			return mismatch("hyperv spinlocks retries", ptrVal(srcSpin.Retries), ptrVal(dstSpin.Retries))
		}
	}
	return nil
}

func ptrVal[T any](p *T) any {
	if p == nil {
		return "<unset>"
	}
	return *p
}

// timersCompat pins the guest-visible clock sources: every timer's name and
// presence, plus frequency and mode for the tsc timer specifically.
func timersCompat(src, dst *Clock) error {
	srcTimers, dstTimers := clockTimers(src), clockTimers(dst)
	if len(srcTimers) != len(dstTimers) {
		return mismatch("timer count", len(srcTimers), len(dstTimers))
	}
	for i := range srcTimers {
		a, b := &srcTimers[i], &dstTimers[i]
		if a.Name != b.Name {
			return mismatch("timer name", a.Name, b.Name)
		}
		if a.Present != b.Present {
			return mismatch(string(a.Name)+" timer presence", a.Present, b.Present)
		}
		if a.Name != TimerTSC {
			continue
		}
		srcFreq, dstFreq := uint64(0), uint64(0)
		if a.Frequency != nil {
			srcFreq = *a.Frequency
		}
		if b.Frequency != nil {
			dstFreq = *b.Frequency
		}
		if srcFreq != dstFreq {
			return mismatch("tsc frequency", srcFreq, dstFreq)
		}
		if a.Mode != b.Mode {
			return mismatch("tsc mode", a.Mode, b.Mode)
		}
	}
	return nil
}

func clockTimers(c *Clock) []Timer {
	if c == nil {
		return nil
	}
	return c.Timers
}

func cpuCompat(src, dst *CPU) error {
	if (src == nil) != (dst == nil) {
		return mismatch("cpu", src != nil, dst != nil)
	}
	if src == nil {
		return nil
	}
	if src.Mode != dst.Mode {
		return mismatch("cpu mode", src.Mode, dst.Mode)
	}
	srcModel, dstModel := cpuModelValue(src), cpuModelValue(dst)
	if srcModel != dstModel {
		return mismatch("cpu model", srcModel, dstModel)
	}
	if src.Vendor != dst.Vendor {
		return mismatch("cpu vendor", src.Vendor, dst.Vendor)
	}
	if (src.Topology == nil) != (dst.Topology == nil) {
		return mismatch("cpu topology", src.Topology != nil, dst.Topology != nil)
	}
	if src.Topology != nil && *src.Topology != *dst.Topology {
		return mismatch("cpu topology", *src.Topology, *dst.Topology)
	}
	if len(src.Features) != len(dst.Features) {
		return mismatch("cpu feature count", len(src.Features), len(dst.Features))
	}
	for i := range src.Features {
		if src.Features[i] != dst.Features[i] {
			return mismatch("cpu feature", src.Features[i].Name, dst.Features[i].Name)
		}
	}
	return nil
}

func cpuModelValue(c *CPU) string {
	if c.Model == nil {
		return ""
	}
	return c.Model.Value
}

func sysInfoCompat(src, dst *SysInfo) error {
	if (src == nil) != (dst == nil) {
		return mismatch("sysinfo", src != nil, dst != nil)
	}
	if src == nil {
		return nil
	}
	if src.Type != dst.Type {
		return mismatch("sysinfo type", src.Type, dst.Type)
	}
	if err := sysInfoEntriesCompat("sysinfo bios", biosEntries(src), biosEntries(dst)); err != nil {
		return err
	}
	return sysInfoEntriesCompat("sysinfo system", systemEntries(src), systemEntries(dst))
}

func biosEntries(s *SysInfo) []SysInfoEntry {
	if s.BIOS == nil {
		return nil
	}
	return s.BIOS.Entries
}

func systemEntries(s *SysInfo) []SysInfoEntry {
	if s.System == nil {
		return nil
	}
	return s.System.Entries
}

func sysInfoEntriesCompat(what string, src, dst []SysInfoEntry) error {
	if len(src) != len(dst) {
		return mismatch(what+" entry count", len(src), len(dst))
	}
	for i := range src {
		if src[i] != dst[i] {
			return mismatch(what+" entry "+src[i].Name, src[i].Value, dst[i].Value)
		}
	}
	return nil
}

// BEGIN device comparison --------------------------------------------------

func devicesCompat(srcDef, dstDef *Definition) error {
	src, dst := &srcDef.Devices, &dstDef.Devices
	if err := disksCompat(src.Disks, dst.Disks); err != nil {
		return err
	}
	if err := controllersCompat(src.Controllers, dst.Controllers); err != nil {
		return err
	}
	if len(src.Leases) != len(dst.Leases) {
		return mismatch("lease count", len(src.Leases), len(dst.Leases))
	}
	if err := filesystemsCompat(src.Filesystems, dst.Filesystems); err != nil {
		return err
	}
	if err := interfacesCompat(src.Interfaces, dst.Interfaces); err != nil {
		return err
	}
	if err := smartcardsCompat(src.Smartcards, dst.Smartcards); err != nil {
		return err
	}
	if err := serialsCompat("serial", src.Serials, dst.Serials); err != nil {
		return err
	}
	if err := parallelsCompat(src.Parallels, dst.Parallels); err != nil {
		return err
	}
	if err := channelsCompat(src.Channels, dst.Channels); err != nil {
		return err
	}
	if err := consolesCompat(src.Consoles, dst.Consoles); err != nil {
		return err
	}
	if err := inputsCompat(src.Inputs, dst.Inputs); err != nil {
		return err
	}
	if err := graphicsCompat(src.Graphics, dst.Graphics); err != nil {
		return err
	}
	if err := soundsCompat(src.Sounds, dst.Sounds); err != nil {
		return err
	}
	if err := videosCompat(src.Videos, dst.Videos); err != nil {
		return err
	}
	// Host devices include the payloads owned by hostdev interfaces on both
	// sides, so passthrough moved between the two shapes still compares.
	if err := hostDevsCompat(srcDef.AllHostDevs(), dstDef.AllHostDevs()); err != nil {
		return err
	}
	if err := redirDevsCompat(src.RedirDevs, dst.RedirDevs); err != nil {
		return err
	}
	if err := redirFiltersCompat(src.RedirFilters, dst.RedirFilters); err != nil {
		return err
	}
	if err := hubsCompat(src.Hubs, dst.Hubs); err != nil {
		return err
	}
	if err := watchdogsCompat(src.Watchdogs, dst.Watchdogs); err != nil {
		return err
	}
	if err := memBalloonsCompat(src.MemBalloons, dst.MemBalloons); err != nil {
		return err
	}
	return rngsCompat(src.RNGs, dst.RNGs)
}

func addressCompat(what string, src, dst *DeviceInfo) error {
	if !src.Address.Equal(dst.Address) {
		return fmt.Errorf("%w: %s address changed", ErrABIMismatch, what)
	}
	return nil
}

func disksCompat(src, dst []*Disk) error {
	if len(src) != len(dst) {
		return mismatch("disk count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		what := "disk " + a.Target.Dev
		if a.Target.Dev != b.Target.Dev {
			return mismatch("disk target", a.Target.Dev, b.Target.Dev)
		}
		if a.Target.Bus != b.Target.Bus {
			return mismatch(what+" bus", a.Target.Bus, b.Target.Bus)
		}
		if a.Device != b.Device {
			return mismatch(what+" device", a.Device, b.Device)
		}
		if err := addressCompat(what, &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func controllersCompat(src, dst []*Controller) error {
	if len(src) != len(dst) {
		return mismatch("controller count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		what := fmt.Sprintf("%s controller", a.Type)
		if a.Type != b.Type {
			return mismatch("controller type", a.Type, b.Type)
		}
		if !uintPtrEq(a.Index, b.Index) {
			return mismatch(what+" index", ptrVal(a.Index), ptrVal(b.Index))
		}
		if a.Model != b.Model {
			return mismatch(what+" model", a.Model, b.Model)
		}
		if a.Type == ControllerVirtioSerial {
			if !uintPtrEq(a.Ports, b.Ports) {
				return mismatch(what+" ports", ptrVal(a.Ports), ptrVal(b.Ports))
			}
			if !uintPtrEq(a.Vectors, b.Vectors) {
				return mismatch(what+" vectors", ptrVal(a.Vectors), ptrVal(b.Vectors))
			}
		}
		if err := addressCompat(what, &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func filesystemsCompat(src, dst []*Filesystem) error {
	if len(src) != len(dst) {
		return mismatch("filesystem count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Target.Dir != b.Target.Dir {
			return mismatch("filesystem target", a.Target.Dir, b.Target.Dir)
		}
		if err := addressCompat("filesystem "+a.Target.Dir, &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func interfacesCompat(src, dst []*Interface) error {
	if len(src) != len(dst) {
		return mismatch("interface count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		srcMAC, dstMAC := ifaceMAC(a), ifaceMAC(b)
		if srcMAC != dstMAC {
			return mismatch("interface mac", srcMAC, dstMAC)
		}
		what := "interface " + srcMAC
		if ifaceModel(a) != ifaceModel(b) {
			return mismatch(what+" model", ifaceModel(a), ifaceModel(b))
		}
		if err := addressCompat(what, &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func ifaceMAC(i *Interface) string {
	if i.MAC == nil {
		return ""
	}
	return i.MAC.Address
}

func ifaceModel(i *Interface) string {
	if i.Model == nil {
		return ""
	}
	return i.Model.Type
}

func smartcardsCompat(src, dst []*Smartcard) error {
	if len(src) != len(dst) {
		return mismatch("smartcard count", len(src), len(dst))
	}
	for i := range src {
		if err := addressCompat("smartcard", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func serialsCompat(what string, src, dst []*Serial) error {
	if len(src) != len(dst) {
		return mismatch(what+" count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if !serialTargetEq(a.Target, b.Target) {
			return fmt.Errorf("%w: %s %d target changed", ErrABIMismatch, what, i)
		}
		if err := addressCompat(what, &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func serialTargetEq(a, b *SerialTarget) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || (a.Type == b.Type && uintPtrEq(a.Port, b.Port))
}

func parallelsCompat(src, dst []*Parallel) error {
	if len(src) != len(dst) {
		return mismatch("parallel count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if !serialTargetEq(a.Target, b.Target) {
			return fmt.Errorf("%w: parallel %d target changed", ErrABIMismatch, i)
		}
		if err := addressCompat("parallel", &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func channelsCompat(src, dst []*Channel) error {
	if len(src) != len(dst) {
		return mismatch("channel count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Target == nil || b.Target == nil {
			if (a.Target == nil) != (b.Target == nil) {
				return fmt.Errorf("%w: channel %d target changed", ErrABIMismatch, i)
			}
		} else if a.Target.Type != b.Target.Type || a.Target.Name != b.Target.Name ||
			a.Target.Address != b.Target.Address || a.Target.Port != b.Target.Port {
			return fmt.Errorf("%w: channel %d target changed", ErrABIMismatch, i)
		}
		if err := addressCompat("channel", &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func consolesCompat(src, dst []*Console) error {
	if len(src) != len(dst) {
		return mismatch("console count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if !consoleTargetEq(a.Target, b.Target) {
			return fmt.Errorf("%w: console %d target changed", ErrABIMismatch, i)
		}
		if err := addressCompat("console", &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func consoleTargetEq(a, b *ConsoleTarget) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || (a.Type == b.Type && uintPtrEq(a.Port, b.Port))
}

func inputsCompat(src, dst []*Input) error {
	if len(src) != len(dst) {
		return mismatch("input count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Type != b.Type {
			return mismatch("input type", a.Type, b.Type)
		}
		if a.Bus != b.Bus {
			return mismatch("input bus", a.Bus, b.Bus)
		}
		if err := addressCompat(fmt.Sprintf("%s input", a.Type), &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func graphicsCompat(src, dst []*Graphics) error {
	if len(src) != len(dst) {
		return mismatch("graphics count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Type != dst[i].Type {
			return mismatch("graphics type", src[i].Type, dst[i].Type)
		}
	}
	return nil
}

func soundsCompat(src, dst []*Sound) error {
	if len(src) != len(dst) {
		return mismatch("sound count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Model != dst[i].Model {
			return mismatch("sound model", src[i].Model, dst[i].Model)
		}
		if err := addressCompat("sound", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func videosCompat(src, dst []*Video) error {
	if len(src) != len(dst) {
		return mismatch("video count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Model.Type != b.Model.Type {
			return mismatch("video model", a.Model.Type, b.Model.Type)
		}
		if !uintPtrEq(a.Model.VRAM, b.Model.VRAM) {
			return mismatch("video vram", ptrVal(a.Model.VRAM), ptrVal(b.Model.VRAM))
		}
		if !uintPtrEq(a.Model.Heads, b.Model.Heads) {
			return mismatch("video heads", ptrVal(a.Model.Heads), ptrVal(b.Model.Heads))
		}
		if err := addressCompat("video", &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func hostDevsCompat(src, dst []*HostDev) error {
	if len(src) != len(dst) {
		return mismatch("hostdev count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Mode != b.Mode {
			return mismatch("hostdev mode", a.Mode, b.Mode)
		}
		if a.SubType != b.SubType {
			return mismatch("hostdev subsystem type", a.SubType, b.SubType)
		}
		if a.CapType != b.CapType {
			return mismatch("hostdev capability type", a.CapType, b.CapType)
		}
		if err := addressCompat("hostdev", &a.DeviceInfo, &b.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func redirDevsCompat(src, dst []*RedirDev) error {
	if len(src) != len(dst) {
		return mismatch("redirdev count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Bus != dst[i].Bus {
			return mismatch("redirdev bus", src[i].Bus, dst[i].Bus)
		}
		if err := addressCompat("redirdev", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func redirFiltersCompat(src, dst []*RedirFilter) error {
	if len(src) != len(dst) {
		return mismatch("redirfilter count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if len(a.USBDevs) != len(b.USBDevs) {
			return mismatch("redirfilter rule count", len(a.USBDevs), len(b.USBDevs))
		}
		for j := range a.USBDevs {
			if a.USBDevs[j] != b.USBDevs[j] {
				return mismatch(fmt.Sprintf("redirfilter rule %d", j), a.USBDevs[j], b.USBDevs[j])
			}
		}
	}
	return nil
}

func hubsCompat(src, dst []*Hub) error {
	if len(src) != len(dst) {
		return mismatch("hub count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Type != dst[i].Type {
			return mismatch("hub type", src[i].Type, dst[i].Type)
		}
		if err := addressCompat("hub", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func watchdogsCompat(src, dst []*Watchdog) error {
	if len(src) != len(dst) {
		return mismatch("watchdog count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Model != dst[i].Model {
			return mismatch("watchdog model", src[i].Model, dst[i].Model)
		}
		if err := addressCompat("watchdog", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func memBalloonsCompat(src, dst []*MemBalloon) error {
	if len(src) != len(dst) {
		return mismatch("memballoon count", len(src), len(dst))
	}
	for i := range src {
		if src[i].Model != dst[i].Model {
			return mismatch("memballoon model", src[i].Model, dst[i].Model)
		}
		if err := addressCompat("memballoon", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func rngsCompat(src, dst []*RNG) error {
	if len(src) != len(dst) {
		return mismatch("rng count", len(src), len(dst))
	}
	for i := range src {
		a, b := src[i], dst[i]
		if a.Model != b.Model {
			return mismatch("rng model", a.Model, b.Model)
		}
		srcBackend, dstBackend := rngBackendModel(a), rngBackendModel(b)
		if srcBackend != dstBackend {
			return mismatch("rng backend model", srcBackend, dstBackend)
		}
		if err := addressCompat("rng", &src[i].DeviceInfo, &dst[i].DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

func rngBackendModel(r *RNG) RNGBackendModel {
	if r.Backend == nil {
		return ""
	}
	return r.Backend.Model
}

// END device comparison ----------------------------------------------------
