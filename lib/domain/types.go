package domain

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
)

// Definition is the persistent configuration of a single guest. It is the
// root of the XML document and the unit the registry and store operate on.
type Definition struct {
	XMLName xml.Name `xml:"domain"`
	Type    VirtType `xml:"type,attr"`
	// ID is the runtime hypervisor id; present only in live output.
	ID *int `xml:"id,attr,omitempty"`

	Name        string    `xml:"name"`
	UUID        string    `xml:"uuid,omitempty"`
	Title       string    `xml:"title,omitempty"`
	Description string    `xml:"description,omitempty"`
	Metadata    *Metadata `xml:"metadata"`

	Memory        *Memory `xml:"memory"`
	CurrentMemory *Memory `xml:"currentMemory"`

	BlkioTune *BlkioTune `xml:"blkiotune"`
	MemTune   *MemTune   `xml:"memtune"`
	VCPU      *VCPU      `xml:"vcpu"`
	CPUTune   *CPUTune   `xml:"cputune"`
	NUMATune  *NUMATune  `xml:"numatune"`

	SysInfo  *SysInfo  `xml:"sysinfo"`
	OS       OS        `xml:"os"`
	Features *Features `xml:"features"`
	CPU      *CPU      `xml:"cpu"`
	Clock    *Clock    `xml:"clock"`

	OnPoweroff    LifecycleAction   `xml:"on_poweroff,omitempty"`
	OnReboot      LifecycleAction   `xml:"on_reboot,omitempty"`
	OnCrash       LifecycleAction   `xml:"on_crash,omitempty"`
	OnLockFailure LockFailureAction `xml:"on_lockfailure,omitempty"`

	PM *PM `xml:"pm"`

	Devices Devices `xml:"devices"`

	SecLabels []*SecLabel `xml:"seclabel"`

	QEMUCommandline *QEMUCommandline `xml:"http://libvirt.org/schemas/domain/qemu/1.0 commandline"`
}

// Metadata preserves application-specific XML verbatim.
type Metadata struct {
	Data string `xml:",innerxml"`
}

// MaxVCPUs reports the configured vcpu ceiling, defaulting to one.
func (def *Definition) MaxVCPUs() uint {
	if def.VCPU == nil || def.VCPU.Max == 0 {
		return 1
	}
	return def.VCPU.Max
}

// CurrentVCPUs reports the online vcpu count.
func (def *Definition) CurrentVCPUs() uint {
	if def.VCPU != nil && def.VCPU.Current != nil {
		return *def.VCPU.Current
	}
	return def.MaxVCPUs()
}

// AllHostDevs returns the top-level host devices plus the PCI payloads owned
// by hostdev-type interfaces, in document order.
func (def *Definition) AllHostDevs() []*HostDev {
	out := make([]*HostDev, 0, len(def.Devices.HostDevs)+len(def.Devices.Interfaces))
	out = append(out, def.Devices.HostDevs...)
	for _, iface := range def.Devices.Interfaces {
		if hd := iface.asHostDev(); hd != nil {
			out = append(out, hd)
		}
	}
	return out
}

// asHostDev exposes a hostdev-type interface's payload as a host device view
// for comparison purposes. The interface remains the owner.
func (i *Interface) asHostDev() *HostDev {
	if i.Type != IfaceTypeHostdev || i.Source == nil || i.Source.Address == nil {
		return nil
	}
	pci := i.Source.Address.PCI
	if pci == nil {
		return nil
	}
	return &HostDev{
		Mode:    HostDevSubsystem,
		SubType: HostDevSubsysPCI,
		Managed: i.Managed,
		Source: HostDevSource{
			PCIAddress: &HostDevPCIAddress{
				Domain:   pci.Domain,
				Bus:      pci.Bus,
				Slot:     pci.Slot,
				Function: pci.Function,
			},
		},
		DeviceInfo: i.DeviceInfo,
	}
}

// BEGIN Memory -------------------------------------------------------------

// Memory is a size element with an optional unit attribute. After parsing it
// is always normalized to KiB.
type Memory struct {
	Unit  string
	Value uint64
}

func (m *Memory) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if m.Unit != "" {
		start.Attr = append(start.Attr, attr("unit", m.Unit))
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(strconv.FormatUint(m.Value, 10))); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (m *Memory) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, at := range start.Attr {
		if at.Name.Local == "unit" {
			m.Unit = at.Value
		}
	}
	var body struct {
		Value string `xml:",chardata"`
	}
	if err := d.DecodeElement(&body, &start); err != nil {
		return err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(body.Value), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: cannot parse memory size %q", ErrInvalidValue, body.Value)
	}
	m.Value = v
	return nil
}

// KiB reports the size scaled to kibibytes, interpreting the unit attribute.
// An empty unit means KiB already.
func (m *Memory) KiB() (uint64, error) {
	if m.Unit == "" {
		return m.Value, nil
	}
	scale, err := memoryUnitBytes(m.Unit)
	if err != nil {
		return 0, err
	}
	return m.Value * scale / uint64(datasize.KB), nil
}

// Normalize rewrites the size in KiB and clears the unit.
func (m *Memory) Normalize() error {
	kib, err := m.KiB()
	if err != nil {
		return err
	}
	m.Value = kib
	m.Unit = "KiB"
	return nil
}

func memoryUnitBytes(unit string) (uint64, error) {
	switch strings.ToLower(unit) {
	case "b", "bytes":
		return 1, nil
	case "kb":
		return 1000, nil
	case "k", "kib":
		return uint64(datasize.KB), nil
	case "mb":
		return 1000 * 1000, nil
	case "m", "mib":
		return uint64(datasize.MB), nil
	case "gb":
		return 1000 * 1000 * 1000, nil
	case "g", "gib":
		return uint64(datasize.GB), nil
	case "tb":
		return 1000 * 1000 * 1000 * 1000, nil
	case "t", "tib":
		return uint64(datasize.TB), nil
	}
	return 0, fmt.Errorf("%w: unknown memory unit %q", ErrInvalidValue, unit)
}

// END Memory ---------------------------------------------------------------

// BEGIN CPU and tuning -----------------------------------------------------

// VCPU is the <vcpu> element: the ceiling as element text plus placement,
// pinning set and current count as attributes.
type VCPU struct {
	Placement VCPUPlacement
	CPUSet    string
	Current   *uint
	Max       uint
}

func (v *VCPU) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if v.Placement != "" {
		start.Attr = append(start.Attr, attr("placement", string(v.Placement)))
	}
	if v.CPUSet != "" {
		start.Attr = append(start.Attr, attr("cpuset", v.CPUSet))
	}
	if at, ok := uintAttr("current", v.Current); ok {
		start.Attr = append(start.Attr, at)
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(strconv.FormatUint(uint64(v.Max), 10))); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (v *VCPU) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "placement":
			v.Placement = VCPUPlacement(at.Value)
		case "cpuset":
			v.CPUSet = at.Value
		case "current":
			if err := parseUintAttr("vcpu current", at.Value, &v.Current, 10); err != nil {
				return err
			}
		}
	}
	var body struct {
		Value string `xml:",chardata"`
	}
	if err := d.DecodeElement(&body, &start); err != nil {
		return err
	}
	text := strings.TrimSpace(body.Value)
	if text == "" {
		v.Max = 1
		return nil
	}
	n, err := strconv.ParseUint(text, 10, 32)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: cannot parse vcpu count %q", ErrInvalidValue, body.Value)
	}
	v.Max = uint(n)
	return nil
}

type VCPUPin struct {
	VCPU   uint   `xml:"vcpu,attr"`
	CPUSet string `xml:"cpuset,attr"`
}

type EmulatorPin struct {
	CPUSet string `xml:"cpuset,attr"`
}

type CPUTune struct {
	Shares         *uint64      `xml:"shares,omitempty"`
	Period         *uint64      `xml:"period,omitempty"`
	Quota          *int64       `xml:"quota,omitempty"`
	EmulatorPeriod *uint64      `xml:"emulator_period,omitempty"`
	EmulatorQuota  *int64       `xml:"emulator_quota,omitempty"`
	VCPUPins       []VCPUPin    `xml:"vcpupin"`
	EmulatorPin    *EmulatorPin `xml:"emulatorpin"`
}

type NUMAMemory struct {
	Mode    NUMAMode `xml:"mode,attr,omitempty"`
	Nodeset string   `xml:"nodeset,attr"`
}

type NUMATune struct {
	Memory *NUMAMemory `xml:"memory"`
}

type BlkioDevice struct {
	Path   string `xml:"path"`
	Weight uint   `xml:"weight"`
}

type BlkioTune struct {
	Weight  *uint         `xml:"weight,omitempty"`
	Devices []BlkioDevice `xml:"device"`
}

type MemTune struct {
	HardLimit     *Memory `xml:"hard_limit"`
	SoftLimit     *Memory `xml:"soft_limit"`
	SwapHardLimit *Memory `xml:"swap_hard_limit"`
	MinGuarantee  *Memory `xml:"min_guarantee"`
}

type CPUTopology struct {
	Sockets uint `xml:"sockets,attr"`
	Cores   uint `xml:"cores,attr"`
	Threads uint `xml:"threads,attr"`
}

type CPUFeature struct {
	Policy string `xml:"policy,attr,omitempty"`
	Name   string `xml:"name,attr"`
}

type CPUModelDef struct {
	Fallback string `xml:"fallback,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type NUMACell struct {
	CPUs   string `xml:"cpus,attr"`
	Memory uint64 `xml:"memory,attr"`
}

type CPUNUMA struct {
	Cells []NUMACell `xml:"cell"`
}

type CPU struct {
	Mode     string       `xml:"mode,attr,omitempty"`
	Match    string       `xml:"match,attr,omitempty"`
	Model    *CPUModelDef `xml:"model"`
	Vendor   string       `xml:"vendor,omitempty"`
	Topology *CPUTopology `xml:"topology"`
	Features []CPUFeature `xml:"feature"`
	NUMA     *CPUNUMA     `xml:"numa"`
}

// END CPU and tuning -------------------------------------------------------

// BEGIN SysInfo ------------------------------------------------------------

type SysInfoEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type SysInfoBIOS struct {
	Entries []SysInfoEntry `xml:"entry"`
}

type SysInfoSystem struct {
	Entries []SysInfoEntry `xml:"entry"`
}

type SysInfo struct {
	Type   string         `xml:"type,attr"`
	BIOS   *SysInfoBIOS   `xml:"bios"`
	System *SysInfoSystem `xml:"system"`
}

// SystemEntry returns the named <system> entry value, or "".
func (s *SysInfo) SystemEntry(name string) string {
	if s == nil || s.System == nil {
		return ""
	}
	for _, e := range s.System.Entries {
		if e.Name == name {
			return e.Value
		}
	}
	return ""
}

// END SysInfo --------------------------------------------------------------

// BEGIN OS -----------------------------------------------------------------

type OSType struct {
	Arch    string   `xml:"arch,attr,omitempty"`
	Machine string   `xml:"machine,attr,omitempty"`
	ID      OSTypeID `xml:",chardata"`
}

type BootDevice struct {
	Dev BootDev `xml:"dev,attr"`
}

type BootMenu struct {
	Enable string `xml:"enable,attr,omitempty"`
}

type BIOSOptions struct {
	UseSerial     string `xml:"useserial,attr,omitempty"`
	RebootTimeout *int   `xml:"rebootTimeout,attr,omitempty"`
}

type OSSMBios struct {
	Mode SMBiosMode `xml:"mode,attr"`
}

type OS struct {
	Type     OSType       `xml:"type"`
	Loader   string       `xml:"loader,omitempty"`
	Kernel   string       `xml:"kernel,omitempty"`
	Initrd   string       `xml:"initrd,omitempty"`
	Cmdline  string       `xml:"cmdline,omitempty"`
	DTB      string       `xml:"dtb,omitempty"`
	Root     string       `xml:"root,omitempty"`
	Init     string       `xml:"init,omitempty"`
	InitArgs []string     `xml:"initarg"`
	BootDevs []BootDevice `xml:"boot"`
	BootMenu *BootMenu    `xml:"bootmenu"`
	BIOS     *BIOSOptions `xml:"bios"`
	SMBios   *OSSMBios    `xml:"smbios"`
}

// END OS -------------------------------------------------------------------

// BEGIN Features -----------------------------------------------------------

type FeatureAPIC struct {
	EOI string `xml:"eoi,attr,omitempty"`
}

type HyperVFeature struct {
	State string `xml:"state,attr,omitempty"`
}

type HyperVSpinlocks struct {
	State   string `xml:"state,attr,omitempty"`
	Retries *uint  `xml:"retries,attr,omitempty"`
}

type FeatureHyperV struct {
	Relaxed   *HyperVFeature   `xml:"relaxed"`
	VAPIC     *HyperVFeature   `xml:"vapic"`
	Spinlocks *HyperVSpinlocks `xml:"spinlocks"`
}

type Features struct {
	ACPI     *Empty         `xml:"acpi"`
	APIC     *FeatureAPIC   `xml:"apic"`
	PAE      *Empty         `xml:"pae"`
	HAP      *Empty         `xml:"hap"`
	Viridian *Empty         `xml:"viridian"`
	PrivNet  *Empty         `xml:"privnet"`
	HyperV   *FeatureHyperV `xml:"hyperv"`
}

// END Features -------------------------------------------------------------

// BEGIN Clock --------------------------------------------------------------

type TimerCatchUp struct {
	Threshold *uint `xml:"threshold,attr,omitempty"`
	Slew      *uint `xml:"slew,attr,omitempty"`
	Limit     *uint `xml:"limit,attr,omitempty"`
}

type Timer struct {
	Name       TimerName       `xml:"name,attr"`
	Track      string          `xml:"track,attr,omitempty"`
	TickPolicy TimerTickPolicy `xml:"tickpolicy,attr,omitempty"`
	Frequency  *uint64         `xml:"frequency,attr,omitempty"`
	Mode       string          `xml:"mode,attr,omitempty"`
	Present    string          `xml:"present,attr,omitempty"`
	CatchUp    *TimerCatchUp   `xml:"catchup"`
}

type Clock struct {
	Offset     ClockOffset `xml:"offset,attr,omitempty"`
	Adjustment string      `xml:"adjustment,attr,omitempty"`
	TimeZone   string      `xml:"timezone,attr,omitempty"`
	Timers     []Timer     `xml:"timer"`
}

// TimerByName returns the first timer with the given name, or nil.
func (c *Clock) TimerByName(name TimerName) *Timer {
	if c == nil {
		return nil
	}
	for i := range c.Timers {
		if c.Timers[i].Name == name {
			return &c.Timers[i]
		}
	}
	return nil
}

// END Clock ----------------------------------------------------------------

type PMState struct {
	Enabled string `xml:"enabled,attr,omitempty"`
}

type PM struct {
	SuspendToMem  *PMState `xml:"suspend-to-mem"`
	SuspendToDisk *PMState `xml:"suspend-to-disk"`
}

// BEGIN Security labels ----------------------------------------------------

// SecLabel is a top-level security driver assignment for the whole guest.
type SecLabel struct {
	XMLName    xml.Name     `xml:"seclabel"`
	Type       SecLabelType `xml:"type,attr,omitempty"`
	Model      string       `xml:"model,attr,omitempty"`
	Relabel    string       `xml:"relabel,attr,omitempty"`
	Label      string       `xml:"label,omitempty"`
	ImageLabel string       `xml:"imagelabel,omitempty"`
	BaseLabel  string       `xml:"baselabel,omitempty"`
}

// Relabelling reports whether this label requests resource relabelling.
// Dynamic labels relabel unless explicitly disabled.
func (s *SecLabel) Relabelling() bool {
	if s.Relabel != "" {
		return s.Relabel == "yes"
	}
	return s.Type == SecLabelDynamic
}

// DeviceSecLabel is a per-device override of a top-level label; it must name
// a top-level model that performs relabelling.
type DeviceSecLabel struct {
	Model   string `xml:"model,attr,omitempty"`
	Relabel string `xml:"relabel,attr,omitempty"`
	Label   string `xml:"label,omitempty"`
}

// END Security labels ------------------------------------------------------

// QEMUCommandline carries hypervisor passthrough arguments from the qemu
// XML namespace.
type QEMUCommandline struct {
	Args []QEMUArg `xml:"arg"`
	Envs []QEMUEnv `xml:"env"`
}

type QEMUArg struct {
	Value string `xml:"value,attr"`
}

type QEMUEnv struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr,omitempty"`
}
