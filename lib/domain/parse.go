package domain

import (
	"encoding/xml"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Parse decodes a domain XML document and runs the full post-parse
// pipeline: strict validation, driver hooks, console compatibility,
// implicit devices, disk address allocation and controller synthesis,
// boot-order and label checks, and normalization of memory, vcpus and
// the UUID. On success the definition is fully populated and internally
// consistent.
func Parse(data []byte, opts *ParseOptions) (*Definition, error) {
	def := &Definition{}
	if err := xml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("decoding domain XML: %w", err)
	}
	if err := PostParse(def, opts); err != nil {
		return nil, err
	}
	return def, nil
}

// PostParse runs the pipeline on an already-decoded definition. Loaders
// that unwrap the domain element from a larger document call this directly.
func PostParse(def *Definition, opts *ParseOptions) error {
	normalizeLegacy(def)
	if err := validate(def); err != nil {
		return err
	}
	if hooks := opts.hooks(); hooks != nil {
		if err := runHooks(def, hooks); err != nil {
			return err
		}
	}
	if err := addConsoleCompat(def); err != nil {
		return err
	}
	addImplicitInput(def)
	if err := AssignDiskAddresses(def, opts.wideSCSI()); err != nil {
		return err
	}
	if err := AddImplicitControllers(def); err != nil {
		return err
	}
	if err := validateBootOrdering(def); err != nil {
		return err
	}
	if err := validateSecLabels(def); err != nil {
		return err
	}
	if err := normalizeVCPUs(def); err != nil {
		return err
	}
	if err := normalizeMemory(def); err != nil {
		return err
	}
	if err := normalizeUUID(def); err != nil {
		return err
	}
	if opts.inactive() {
		scrubRuntimeState(def)
	}
	return nil
}

// normalizeLegacy rewrites values older tools emitted. The only survivor is
// the qemu "aio" driver type, which has meant raw for a long time.
func normalizeLegacy(def *Definition) {
	for _, disk := range def.Devices.Disks {
		if disk.Driver != nil && disk.Driver.Type == "aio" {
			disk.Driver.Type = "raw"
		}
	}
}

func runHooks(def *Definition, hooks DriverHooks) error {
	err := def.Devices.forEach(func(dev any, _ *DeviceInfo) error {
		return hooks.DevicePostParse(def, dev)
	})
	if err != nil {
		return err
	}
	return hooks.DomainPostParse(def)
}

// forEach visits every device in document-model order. info is nil for
// devices that carry no placement info.
func (d *Devices) forEach(fn func(dev any, info *DeviceInfo) error) error {
	for _, v := range d.Disks {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Controllers {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Leases {
		if err := fn(v, nil); err != nil {
			return err
		}
	}
	for _, v := range d.Filesystems {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Interfaces {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Smartcards {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Serials {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Parallels {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Channels {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Consoles {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Inputs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Graphics {
		if err := fn(v, nil); err != nil {
			return err
		}
	}
	for _, v := range d.Sounds {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Videos {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.HostDevs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.RedirDevs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Hubs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.Watchdogs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.MemBalloons {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	for _, v := range d.RNGs {
		if err := fn(v, &v.DeviceInfo); err != nil {
			return err
		}
	}
	return nil
}

// BEGIN validation ---------------------------------------------------------

func validate(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: domain name", ErrMissingField)
	}
	if err := requireEnum("domain type", def.Type, virtTypes); err != nil {
		return err
	}
	if err := requireEnum("os type", def.OS.Type.ID, osTypeIDs); err != nil {
		return err
	}
	for _, b := range def.OS.BootDevs {
		if err := requireEnum("boot device", b.Dev, bootDevs); err != nil {
			return err
		}
	}
	if s := def.OS.SMBios; s != nil {
		if err := requireEnum("smbios mode", s.Mode, smbiosModes); err != nil {
			return err
		}
	}
	if err := checkEnum("on_poweroff action", def.OnPoweroff, lifecycleActions); err != nil {
		return err
	}
	if err := checkEnum("on_reboot action", def.OnReboot, lifecycleActions); err != nil {
		return err
	}
	if err := checkEnum("on_crash action", def.OnCrash, lifecycleActions); err != nil {
		return err
	}
	if err := checkEnum("on_lockfailure action", def.OnLockFailure, lockFailureActions); err != nil {
		return err
	}
	if def.VCPU != nil {
		if err := checkEnum("vcpu placement", def.VCPU.Placement, vcpuPlacements); err != nil {
			return err
		}
		if def.VCPU.Current != nil && *def.VCPU.Current > def.VCPU.Max {
			return fmt.Errorf("%w: current vcpus %d exceed maximum %d",
				ErrConflict, *def.VCPU.Current, def.VCPU.Max)
		}
	}
	if def.NUMATune != nil && def.NUMATune.Memory != nil {
		if err := checkEnum("numatune mode", def.NUMATune.Memory.Mode, numaModes); err != nil {
			return err
		}
	}
	if err := validateClock(def.Clock); err != nil {
		return err
	}
	if err := validateTopLevelSecLabels(def.SecLabels); err != nil {
		return err
	}
	return validateDevices(def)
}

func validateClock(c *Clock) error {
	if c == nil {
		return nil
	}
	if err := checkEnum("clock offset", c.Offset, clockOffsets); err != nil {
		return err
	}
	for i := range c.Timers {
		t := &c.Timers[i]
		if err := requireEnum("timer name", t.Name, timerNames); err != nil {
			return err
		}
		if err := checkEnum("timer tick policy", t.TickPolicy, timerTickPolicies); err != nil {
			return err
		}
		if t.Name != TimerTSC && (t.Frequency != nil || t.Mode != "") {
			return fmt.Errorf("%w: timer %q cannot carry frequency or mode", ErrConflict, t.Name)
		}
	}
	return nil
}

func validateTopLevelSecLabels(labels []*SecLabel) error {
	seen := map[string]bool{}
	for _, l := range labels {
		if err := checkEnum("seclabel type", l.Type, secLabelTypes); err != nil {
			return err
		}
		if l.Model != "" {
			if seen[l.Model] {
				return fmt.Errorf("%w: seclabel model %q", ErrDuplicate, l.Model)
			}
			seen[l.Model] = true
		}
		switch l.Type {
		case SecLabelStatic:
			if l.Label == "" {
				return fmt.Errorf("%w: static seclabel requires a label", ErrMissingField)
			}
		case SecLabelNone:
			if l.Label != "" {
				return fmt.Errorf("%w: seclabel type none cannot carry a label", ErrConflict)
			}
		}
	}
	return nil
}

func validateDevices(def *Definition) error {
	d := &def.Devices
	if len(d.Watchdogs) > 1 {
		return fmt.Errorf("%w: watchdog", ErrDuplicate)
	}
	if len(d.MemBalloons) > 1 {
		return fmt.Errorf("%w: memballoon", ErrDuplicate)
	}
	if len(d.RNGs) > 1 {
		return fmt.Errorf("%w: rng", ErrDuplicate)
	}
	if len(d.RedirFilters) > 1 {
		return fmt.Errorf("%w: redirfilter", ErrDuplicate)
	}

	if err := validateDisks(d.Disks); err != nil {
		return err
	}
	if err := validateControllers(d.Controllers); err != nil {
		return err
	}
	for _, l := range d.Leases {
		if l.Lockspace == "" || l.Key == "" || l.Target.Path == "" {
			return fmt.Errorf("%w: lease lockspace, key and target path", ErrMissingField)
		}
	}
	for _, fs := range d.Filesystems {
		if err := checkEnum("filesystem type", fs.Type, fsTypes); err != nil {
			return err
		}
		if err := checkEnum("filesystem access mode", fs.AccessMode, fsAccessModes); err != nil {
			return err
		}
		if fs.Target.Dir == "" {
			return fmt.Errorf("%w: filesystem target dir", ErrMissingField)
		}
	}
	if err := validateInterfaces(d.Interfaces); err != nil {
		return err
	}
	for _, ch := range d.Channels {
		if ch.Target == nil {
			return fmt.Errorf("%w: channel target", ErrMissingField)
		}
		if err := requireEnum("channel target type", ch.Target.Type, channelTargetTypes); err != nil {
			return err
		}
		if ch.Target.Type == ChannelTargetGuestfwd && (ch.Target.Address == "" || ch.Target.Port == "") {
			return fmt.Errorf("%w: guestfwd channel address and port", ErrMissingField)
		}
		if a := ch.DeviceInfo.Address; ch.Target.Type == ChannelTargetVirtio &&
			!a.IsValid(AddressNone, AddressVirtioSerial) {
			return fmt.Errorf("%w: %s address on virtio channel", ErrConflict, a.Type())
		}
	}
	for _, c := range d.Consoles {
		if c.Target != nil {
			if err := checkEnum("console target type", c.Target.Type, consoleTargetTypes); err != nil {
				return err
			}
			if a := c.DeviceInfo.Address; c.Target.Type == ConsoleTargetVirtio &&
				!a.IsValid(AddressNone, AddressVirtioSerial) {
				return fmt.Errorf("%w: %s address on virtio console", ErrConflict, a.Type())
			}
		}
	}
	for _, sc := range d.Smartcards {
		if a := sc.DeviceInfo.Address; !a.IsValid(AddressNone, AddressCCIDType) {
			return fmt.Errorf("%w: %s address on smartcard", ErrConflict, a.Type())
		}
	}
	for _, in := range d.Inputs {
		if err := requireEnum("input type", in.Type, inputTypes); err != nil {
			return err
		}
		if err := checkEnum("input bus", in.Bus, inputBuses); err != nil {
			return err
		}
		if in.Bus == InputBusPS2 && in.Type == InputTablet {
			return fmt.Errorf("%w: tablet input on ps2 bus", ErrConflict)
		}
	}
	seenGraphics := map[GraphicsType]bool{}
	for _, g := range d.Graphics {
		if err := requireEnum("graphics type", g.Type, graphicsTypes); err != nil {
			return err
		}
		if seenGraphics[g.Type] {
			return fmt.Errorf("%w: graphics type %q", ErrDuplicate, g.Type)
		}
		seenGraphics[g.Type] = true
	}
	for _, s := range d.Sounds {
		if err := requireEnum("sound model", s.Model, soundModels); err != nil {
			return err
		}
	}
	for _, v := range d.Videos {
		if err := requireEnum("video model", v.Model.Type, videoModelTypes); err != nil {
			return err
		}
	}
	for _, r := range d.RedirDevs {
		if r.Bus != "" && r.Bus != "usb" {
			return fmt.Errorf("%w: unsupported redirdev bus %q", ErrInvalidValue, r.Bus)
		}
	}
	for _, h := range d.Hubs {
		if err := requireEnum("hub type", h.Type, hubTypes); err != nil {
			return err
		}
	}
	if w := d.Watchdog(); w != nil {
		if err := requireEnum("watchdog model", w.Model, watchdogModels); err != nil {
			return err
		}
		if err := checkEnum("watchdog action", w.Action, watchdogActions); err != nil {
			return err
		}
	}
	if b := d.MemBalloon(); b != nil {
		if err := requireEnum("memballoon model", b.Model, balloonModels); err != nil {
			return err
		}
	}
	if r := d.RNG(); r != nil {
		if err := requireEnum("rng model", r.Model, rngModels); err != nil {
			return err
		}
		if r.Backend == nil {
			return fmt.Errorf("%w: rng backend", ErrMissingField)
		}
	}
	return nil
}

func validateDisks(disks []*Disk) error {
	seenTargets := map[string]bool{}
	for _, disk := range disks {
		if disk.Target.Dev == "" {
			return fmt.Errorf("%w: disk target dev", ErrMissingField)
		}
		if seenTargets[disk.Target.Dev] {
			return fmt.Errorf("%w: disk target %q", ErrDuplicate, disk.Target.Dev)
		}
		seenTargets[disk.Target.Dev] = true

		if err := checkEnum("disk type", disk.Type, diskTypes); err != nil {
			return err
		}
		if err := checkEnum("disk device", disk.Device, diskDevices); err != nil {
			return err
		}
		if err := checkEnum("disk bus", disk.Target.Bus, diskBuses); err != nil {
			return err
		}
		if drv := disk.Driver; drv != nil {
			if err := checkEnum("disk cache mode", drv.Cache, cacheModes); err != nil {
				return err
			}
			if err := checkEnum("disk io mode", drv.IO, ioModes); err != nil {
				return err
			}
			if err := checkEnum("disk error policy", drv.ErrorPolicy, errorPolicies); err != nil {
				return err
			}
		}
		if src := disk.Source; src != nil {
			if err := checkEnum("disk startup policy", src.StartupPolicy, startupPolicies); err != nil {
				return err
			}
			if src.StartupPolicy != "" && disk.Type != DiskTypeFile && disk.Type != DiskTypeVolume {
				return fmt.Errorf("%w: startupPolicy on %q disk %q", ErrConflict, disk.Type, disk.Target.Dev)
			}
		}
		if (disk.RawIO != "" || disk.SGIO != "") && disk.Device != DiskDeviceLUN {
			return fmt.Errorf("%w: rawio/sgio on non-lun disk %q", ErrConflict, disk.Target.Dev)
		}
		if diskSourceEmpty(disk) && !disk.Removable() && startupPolicyOf(disk) != StartupOptional {
			return fmt.Errorf("%w: disk %q source", ErrMissingField, disk.Target.Dev)
		}
	}
	return nil
}

func diskSourceEmpty(d *Disk) bool {
	s := d.Source
	return s == nil || (s.File == "" && s.Dev == "" && s.Dir == "" && s.Protocol == "" &&
		s.Name == "" && s.Pool == "" && s.Volume == "")
}

func startupPolicyOf(d *Disk) StartupPolicy {
	if d.Source == nil {
		return ""
	}
	return d.Source.StartupPolicy
}

func validateControllers(controllers []*Controller) error {
	seen := map[ControllerType]map[uint]bool{}
	for _, c := range controllers {
		if err := requireEnum("controller type", c.Type, controllerTypes); err != nil {
			return err
		}
		idx := uint(0)
		if c.Index != nil {
			idx = *c.Index
		}
		if seen[c.Type] == nil {
			seen[c.Type] = map[uint]bool{}
		}
		if seen[c.Type][idx] {
			return fmt.Errorf("%w: %s controller index %d", ErrDuplicate, c.Type, idx)
		}
		seen[c.Type][idx] = true
		if a := c.DeviceInfo.Address; !a.IsValid(AddressNone, AddressPCIType, AddressSpaprVIOType, AddressCCWType) {
			return fmt.Errorf("%w: %s address on %s controller", ErrConflict, a.Type(), c.Type)
		}
	}
	return nil
}

func validateInterfaces(ifaces []*Interface) error {
	for _, iface := range ifaces {
		if err := requireEnum("interface type", iface.Type, interfaceTypes); err != nil {
			return err
		}
		if iface.MAC != nil {
			if _, err := net.ParseMAC(iface.MAC.Address); err != nil {
				return fmt.Errorf("%w: interface mac %q", ErrInvalidValue, iface.MAC.Address)
			}
		}
		switch iface.Type {
		case IfaceTypeNetwork:
			if iface.Source == nil || iface.Source.Network == "" {
				return fmt.Errorf("%w: network interface source network", ErrMissingField)
			}
		case IfaceTypeBridge:
			if iface.Source == nil || iface.Source.Bridge == "" {
				return fmt.Errorf("%w: bridge interface source bridge", ErrMissingField)
			}
		case IfaceTypeHostdev:
			if iface.asHostDev() == nil {
				return fmt.Errorf("%w: hostdev interface source pci address", ErrMissingField)
			}
		}
	}
	return nil
}

// END validation -----------------------------------------------------------

// addConsoleCompat folds the historic "first console is the serial device"
// layout: on hvm guests a leading console with a serial (or absent) target
// and no serial devices becomes serial 0, and the console stays behind as an
// alias of it. A console that duplicates an existing serial 0 with the same
// backend is accepted as that alias; a different backend is a conflict.
func addConsoleCompat(def *Definition) error {
	if def.OS.Type.ID != OSTypeHVM || len(def.Devices.Consoles) == 0 {
		return nil
	}
	console := def.Devices.Consoles[0]
	if console.Target != nil &&
		console.Target.Type != "" && console.Target.Type != ConsoleTargetSerial {
		return nil
	}

	zero := uintp(0)
	if len(def.Devices.Serials) == 0 {
		serial := &Serial{
			Source: console.Source,
			Target: &SerialTarget{Port: zero},
		}
		def.Devices.Serials = append(def.Devices.Serials, serial)
		console.Target = &ConsoleTarget{Type: ConsoleTargetSerial, Port: zero}
		return nil
	}

	serial := def.Devices.Serials[0]
	if console.Source != nil && serial.Source != nil && !console.Source.Equal(serial.Source) {
		return fmt.Errorf("%w: console and serial 0 use different backends", ErrConflict)
	}
	console.Target = &ConsoleTarget{Type: ConsoleTargetSerial, Port: zero}
	return nil
}

// addImplicitInput gives graphical guests the pointer the emulated hardware
// always exposes: a ps2 mouse on hvm, a xen mouse otherwise.
func addImplicitInput(def *Definition) {
	if len(def.Devices.Graphics) == 0 {
		return
	}
	bus := InputBusPS2
	if def.OS.Type.ID != OSTypeHVM {
		bus = InputBusXen
	}
	for _, in := range def.Devices.Inputs {
		if in.Type == InputMouse && in.Bus == bus {
			return
		}
	}
	def.Devices.Inputs = append(def.Devices.Inputs, &Input{Type: InputMouse, Bus: bus})
}

// validateBootOrdering enforces the two mutually exclusive boot schemes:
// either <os><boot> devices, or per-device boot orders forming a contiguous
// run starting at 1.
func validateBootOrdering(def *Definition) error {
	var orders []uint
	_ = def.Devices.forEach(func(_ any, info *DeviceInfo) error {
		if info != nil && info.Boot != nil {
			orders = append(orders, info.Boot.Order)
		}
		return nil
	})
	if len(orders) == 0 {
		// with neither scheme the firmware boots from disk
		if len(def.OS.BootDevs) == 0 && def.OS.Type.ID == OSTypeHVM {
			def.OS.BootDevs = append(def.OS.BootDevs, BootDevice{Dev: BootDevHD})
		}
		return nil
	}
	if len(def.OS.BootDevs) > 0 {
		return fmt.Errorf("%w: per-device boot orders and os boot devices", ErrConflict)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i] < orders[j] })
	for i, o := range orders {
		want := uint(i + 1)
		if o == want {
			continue
		}
		if o < want {
			return fmt.Errorf("%w: boot order %d", ErrDuplicate, o)
		}
		return fmt.Errorf("%w: boot orders must be contiguous from 1, missing %d", ErrConflict, want)
	}
	return nil
}

// validateSecLabels checks per-device label overrides against the top-level
// models: an override is only meaningful under a model that relabels.
func validateSecLabels(def *Definition) error {
	byModel := map[string]*SecLabel{}
	for _, l := range def.SecLabels {
		byModel[l.Model] = l
	}
	check := func(overrides []DeviceSecLabel, where string) error {
		for _, o := range overrides {
			var top *SecLabel
			if o.Model == "" {
				if len(def.SecLabels) == 1 {
					top = def.SecLabels[0]
				}
			} else {
				top = byModel[o.Model]
			}
			if top == nil {
				return fmt.Errorf("%w: %s seclabel references unknown model %q", ErrConflict, where, o.Model)
			}
			if !top.Relabelling() {
				return fmt.Errorf("%w: %s seclabel override under non-relabelling model %q",
					ErrConflict, where, top.Model)
			}
		}
		return nil
	}
	for _, disk := range def.Devices.Disks {
		if disk.Source != nil {
			if err := check(disk.Source.SecLabels, "disk "+disk.Target.Dev); err != nil {
				return err
			}
		}
	}
	return def.Devices.forEach(func(dev any, _ *DeviceInfo) error {
		src := chardevSourceOf(dev)
		if src == nil {
			return nil
		}
		return check(src.SecLabels, "character device")
	})
}

func chardevSourceOf(dev any) *ChardevSource {
	switch v := dev.(type) {
	case *Serial:
		return v.Source
	case *Parallel:
		return v.Source
	case *Console:
		return v.Source
	case *Channel:
		return v.Source
	case *Smartcard:
		return v.Source
	case *RedirDev:
		return v.Source
	}
	return nil
}

// normalizeVCPUs validates explicit pins and materializes implicit ones
// from the domain cpuset. Pins for vcpus that are configured but offline
// are kept.
func normalizeVCPUs(def *Definition) error {
	if def.CPUTune == nil {
		if def.VCPU == nil || def.VCPU.CPUSet == "" {
			return nil
		}
		def.CPUTune = &CPUTune{}
	}
	max := def.MaxVCPUs()
	seen := map[uint]bool{}
	for _, pin := range def.CPUTune.VCPUPins {
		if pin.VCPU >= max {
			return fmt.Errorf("%w: vcpupin for vcpu %d exceeds maximum %d", ErrInvalidValue, pin.VCPU, max)
		}
		if seen[pin.VCPU] {
			return fmt.Errorf("%w: vcpupin for vcpu %d", ErrDuplicate, pin.VCPU)
		}
		seen[pin.VCPU] = true
	}
	if def.VCPU != nil && def.VCPU.CPUSet != "" {
		for i := uint(0); i < max; i++ {
			if !seen[i] {
				def.CPUTune.VCPUPins = append(def.CPUTune.VCPUPins,
					VCPUPin{VCPU: i, CPUSet: def.VCPU.CPUSet})
			}
		}
	}
	return nil
}

func normalizeMemory(def *Definition) error {
	if def.Memory == nil {
		return fmt.Errorf("%w: memory", ErrMissingField)
	}
	if err := def.Memory.Normalize(); err != nil {
		return err
	}
	if def.CurrentMemory == nil {
		def.CurrentMemory = &Memory{Unit: "KiB", Value: def.Memory.Value}
		return nil
	}
	if err := def.CurrentMemory.Normalize(); err != nil {
		return err
	}
	if def.CurrentMemory.Value > def.Memory.Value {
		return fmt.Errorf("%w: current memory %d KiB exceeds maximum %d KiB",
			ErrConflict, def.CurrentMemory.Value, def.Memory.Value)
	}
	if mt := def.MemTune; mt != nil {
		for _, m := range []*Memory{mt.HardLimit, mt.SoftLimit, mt.SwapHardLimit, mt.MinGuarantee} {
			if m == nil {
				continue
			}
			if err := m.Normalize(); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeUUID canonicalizes or generates the domain UUID and reconciles
// it with the SMBIOS system uuid when one is configured.
func normalizeUUID(def *Definition) error {
	if def.UUID != "" {
		id, err := uuid.Parse(def.UUID)
		if err != nil {
			return fmt.Errorf("%w: domain uuid %q", ErrInvalidValue, def.UUID)
		}
		def.UUID = id.String()
	}
	if sys := def.SysInfo.SystemEntry("uuid"); sys != "" {
		id, err := uuid.Parse(sys)
		if err != nil {
			return fmt.Errorf("%w: sysinfo uuid %q", ErrInvalidValue, sys)
		}
		switch {
		case def.UUID == "":
			def.UUID = id.String()
		case !strings.EqualFold(def.UUID, id.String()):
			return fmt.Errorf("%w: sysinfo uuid %q does not match domain uuid %q",
				ErrConflict, sys, def.UUID)
		}
	}
	if def.UUID == "" {
		def.UUID = uuid.New().String()
	}
	return nil
}
