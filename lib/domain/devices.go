package domain

import (
	"encoding/xml"
	"fmt"
)

// Devices is the ordered, heterogeneous device collection of a Definition.
type Devices struct {
	Emulator     string         `xml:"emulator,omitempty"`
	Disks        []*Disk        `xml:"disk"`
	Controllers  []*Controller  `xml:"controller"`
	Leases       []*Lease       `xml:"lease"`
	Filesystems  []*Filesystem  `xml:"filesystem"`
	Interfaces   []*Interface   `xml:"interface"`
	Smartcards   []*Smartcard   `xml:"smartcard"`
	Serials      []*Serial      `xml:"serial"`
	Parallels    []*Parallel    `xml:"parallel"`
	Channels     []*Channel     `xml:"channel"`
	Consoles     []*Console     `xml:"console"`
	Inputs       []*Input       `xml:"input"`
	Graphics     []*Graphics    `xml:"graphics"`
	Sounds       []*Sound       `xml:"sound"`
	Videos       []*Video       `xml:"video"`
	HostDevs     []*HostDev     `xml:"hostdev"`
	RedirDevs    []*RedirDev    `xml:"redirdev"`
	RedirFilters []*RedirFilter `xml:"redirfilter"`
	Hubs         []*Hub         `xml:"hub"`
	Watchdogs    []*Watchdog    `xml:"watchdog"`
	MemBalloons  []*MemBalloon  `xml:"memballoon"`
	RNGs         []*RNG         `xml:"rng"`
}

// The filter, watchdog, balloon and rng elements may appear at most once;
// the parser enforces that, so the accessors return the sole instance.

func (d *Devices) Watchdog() *Watchdog {
	if len(d.Watchdogs) == 0 {
		return nil
	}
	return d.Watchdogs[0]
}

func (d *Devices) MemBalloon() *MemBalloon {
	if len(d.MemBalloons) == 0 {
		return nil
	}
	return d.MemBalloons[0]
}

func (d *Devices) RNG() *RNG {
	if len(d.RNGs) == 0 {
		return nil
	}
	return d.RNGs[0]
}

func (d *Devices) RedirFilter() *RedirFilter {
	if len(d.RedirFilters) == 0 {
		return nil
	}
	return d.RedirFilters[0]
}

// BEGIN Disk ---------------------------------------------------------------

type DiskDriver struct {
	Name        string      `xml:"name,attr,omitempty"`
	Type        string      `xml:"type,attr,omitempty"`
	Cache       CacheMode   `xml:"cache,attr,omitempty"`
	ErrorPolicy ErrorPolicy `xml:"error_policy,attr,omitempty"`
	IO          IOMode      `xml:"io,attr,omitempty"`
}

type DiskSourceHost struct {
	Name string `xml:"name,attr,omitempty"`
	Port string `xml:"port,attr,omitempty"`
}

// DiskSource is flat over the disk types; the owning disk's type attribute
// decides which fields are meaningful.
type DiskSource struct {
	File          string           `xml:"file,attr,omitempty"`
	Dev           string           `xml:"dev,attr,omitempty"`
	Dir           string           `xml:"dir,attr,omitempty"`
	Protocol      string           `xml:"protocol,attr,omitempty"`
	Name          string           `xml:"name,attr,omitempty"`
	Pool          string           `xml:"pool,attr,omitempty"`
	Volume        string           `xml:"volume,attr,omitempty"`
	StartupPolicy StartupPolicy    `xml:"startupPolicy,attr,omitempty"`
	Hosts         []DiskSourceHost `xml:"host"`
	SecLabels     []DeviceSecLabel `xml:"seclabel"`
}

type DiskTarget struct {
	Dev string  `xml:"dev,attr"`
	Bus DiskBus `xml:"bus,attr,omitempty"`
}

type DiskAuthSecret struct {
	Type  string `xml:"type,attr"`
	Usage string `xml:"usage,attr,omitempty"`
	UUID  string `xml:"uuid,attr,omitempty"`
}

type DiskAuth struct {
	Username string          `xml:"username,attr"`
	Secret   *DiskAuthSecret `xml:"secret"`
}

type Disk struct {
	XMLName  xml.Name   `xml:"disk"`
	Type     DiskType   `xml:"type,attr,omitempty"`
	Device   DiskDevice `xml:"device,attr,omitempty"`
	RawIO    string     `xml:"rawio,attr,omitempty"`
	SGIO     string     `xml:"sgio,attr,omitempty"`
	Snapshot string     `xml:"snapshot,attr,omitempty"`

	Driver    *DiskDriver `xml:"driver"`
	Auth      *DiskAuth   `xml:"auth"`
	Source    *DiskSource `xml:"source"`
	Target    DiskTarget  `xml:"target"`
	Serial    string      `xml:"serial,omitempty"`
	WWN       string      `xml:"wwn,omitempty"`
	ReadOnly  *Empty      `xml:"readonly"`
	Shareable *Empty      `xml:"shareable"`
	Transient *Empty      `xml:"transient"`

	DeviceInfo
}

// Empty models presence-only elements like <readonly/>.
type Empty struct{}

// Removable reports whether the disk medium can be absent at boot.
func (d *Disk) Removable() bool {
	return d.Device == DiskDeviceCDROM || d.Device == DiskDeviceFloppy
}

// END Disk -----------------------------------------------------------------

type Controller struct {
	XMLName xml.Name       `xml:"controller"`
	Type    ControllerType `xml:"type,attr"`
	Index   *uint          `xml:"index,attr"`
	Model   string         `xml:"model,attr,omitempty"`
	Ports   *uint          `xml:"ports,attr,omitempty"`
	Vectors *uint          `xml:"vectors,attr,omitempty"`

	DeviceInfo
}

type LeaseTarget struct {
	Path   string  `xml:"path,attr"`
	Offset *uint64 `xml:"offset,attr,omitempty"`
}

type Lease struct {
	XMLName   xml.Name    `xml:"lease"`
	Lockspace string      `xml:"lockspace"`
	Key       string      `xml:"key"`
	Target    LeaseTarget `xml:"target"`
}

type FilesystemSource struct {
	Dir  string `xml:"dir,attr,omitempty"`
	File string `xml:"file,attr,omitempty"`
	Dev  string `xml:"dev,attr,omitempty"`
	Name string `xml:"name,attr,omitempty"`
}

type FilesystemTarget struct {
	Dir string `xml:"dir,attr"`
}

type Filesystem struct {
	XMLName    xml.Name          `xml:"filesystem"`
	Type       FSType            `xml:"type,attr,omitempty"`
	AccessMode FSAccessMode      `xml:"accessmode,attr,omitempty"`
	Source     *FilesystemSource `xml:"source"`
	Target     FilesystemTarget  `xml:"target"`
	ReadOnly   *Empty            `xml:"readonly"`

	DeviceInfo
}

// BEGIN Interface ----------------------------------------------------------

type InterfaceMAC struct {
	Address string `xml:"address,attr"`
}

// InterfaceSource is flat over the interface types. For hostdev-type
// interfaces the PCI/USB payload lives here and the interface owns it; the
// definition's top-level host-device view only references it.
type InterfaceSource struct {
	Network string   `xml:"network,attr,omitempty"`
	Bridge  string   `xml:"bridge,attr,omitempty"`
	Dev     string   `xml:"dev,attr,omitempty"`
	Mode    string   `xml:"mode,attr,omitempty"`
	Address *Address `xml:"address"`
}

type InterfaceTarget struct {
	Dev string `xml:"dev,attr"`
}

type InterfaceModel struct {
	Type string `xml:"type,attr"`
}

type InterfaceFilterRef struct {
	Filter string `xml:"filter,attr"`
}

type Interface struct {
	XMLName   xml.Name            `xml:"interface"`
	Type      InterfaceType       `xml:"type,attr"`
	Managed   string              `xml:"managed,attr,omitempty"`
	MAC       *InterfaceMAC       `xml:"mac"`
	Source    *InterfaceSource    `xml:"source"`
	Target    *InterfaceTarget    `xml:"target"`
	Model     *InterfaceModel     `xml:"model"`
	FilterRef *InterfaceFilterRef `xml:"filterref"`
	Script    *InterfaceScript    `xml:"script"`

	DeviceInfo
}

type InterfaceScript struct {
	Path string `xml:"path,attr"`
}

// END Interface ------------------------------------------------------------

// BEGIN Character devices --------------------------------------------------

type SerialTarget struct {
	Type string `xml:"type,attr,omitempty"`
	Port *uint  `xml:"port,attr,omitempty"`
}

type Serial struct {
	XMLName xml.Name       `xml:"serial"`
	Source  *ChardevSource `xml:"source"`
	Target  *SerialTarget  `xml:"target"`

	DeviceInfo
}

type Parallel struct {
	XMLName xml.Name       `xml:"parallel"`
	Source  *ChardevSource `xml:"source"`
	Target  *SerialTarget  `xml:"target"`

	DeviceInfo
}

type ConsoleTarget struct {
	Type ConsoleTargetType `xml:"type,attr,omitempty"`
	Port *uint             `xml:"port,attr,omitempty"`
}

type Console struct {
	XMLName xml.Name       `xml:"console"`
	TTY     string         `xml:"tty,attr,omitempty"`
	Source  *ChardevSource `xml:"source"`
	Target  *ConsoleTarget `xml:"target"`

	DeviceInfo
}

// ChannelTarget is flat over guestfwd and virtio channel targets.
type ChannelTarget struct {
	Type    ChannelTargetType `xml:"type,attr"`
	Address string            `xml:"address,attr,omitempty"`
	Port    string            `xml:"port,attr,omitempty"`
	Name    string            `xml:"name,attr,omitempty"`
	State   string            `xml:"state,attr,omitempty"`
}

type Channel struct {
	XMLName xml.Name       `xml:"channel"`
	Source  *ChardevSource `xml:"source"`
	Target  *ChannelTarget `xml:"target"`

	DeviceInfo
}

// The chardev-bearing devices carry their source type as an attribute of the
// device element, so they marshal through a shadow type that injects it.

type serialShadow Serial

func (s *Serial) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalChardev(e, start, "serial", s.Source, (*serialShadow)(s))
}

func (s *Serial) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	src, err := chardevSourceFromAttr(start)
	if err != nil {
		return err
	}
	s.Source = src
	return d.DecodeElement((*serialShadow)(s), &start)
}

type parallelShadow Parallel

func (p *Parallel) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalChardev(e, start, "parallel", p.Source, (*parallelShadow)(p))
}

func (p *Parallel) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	src, err := chardevSourceFromAttr(start)
	if err != nil {
		return err
	}
	p.Source = src
	return d.DecodeElement((*parallelShadow)(p), &start)
}

type consoleShadow Console

func (c *Console) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalChardev(e, start, "console", c.Source, (*consoleShadow)(c))
}

func (c *Console) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	src, err := chardevSourceFromAttr(start)
	if err != nil {
		return err
	}
	c.Source = src
	return d.DecodeElement((*consoleShadow)(c), &start)
}

type channelShadow Channel

func (c *Channel) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return marshalChardev(e, start, "channel", c.Source, (*channelShadow)(c))
}

func (c *Channel) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	src, err := chardevSourceFromAttr(start)
	if err != nil {
		return err
	}
	c.Source = src
	return d.DecodeElement((*channelShadow)(c), &start)
}

func marshalChardev(e *xml.Encoder, start xml.StartElement, name string, src *ChardevSource, shadow any) error {
	start.Name.Local = name
	if typ := src.Type(); typ != "" {
		start.Attr = append(start.Attr, attr("type", string(typ)))
	}
	return e.EncodeElement(shadow, start)
}

// chardevSourceFromAttr allocates the source arm matching the element's type
// attribute; a missing attribute defaults to pty, matching historical input.
func chardevSourceFromAttr(start xml.StartElement) (*ChardevSource, error) {
	typ := ChardevPty
	for _, at := range start.Attr {
		if at.Name.Local == "type" {
			typ = ChardevSourceType(at.Value)
			break
		}
	}
	return newChardevSource(typ)
}

// END Character devices ----------------------------------------------------

// BEGIN Smartcard ----------------------------------------------------------

type Smartcard struct {
	XMLName      xml.Name       `xml:"smartcard"`
	Mode         SmartcardMode  `xml:"-"`
	Certificates []string       `xml:"certificate"`
	Database     string         `xml:"database,omitempty"`
	Source       *ChardevSource `xml:"source"`

	DeviceInfo
}

type smartcardShadow Smartcard

func (s *Smartcard) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "smartcard"
	start.Attr = append(start.Attr, attr("mode", string(s.Mode)))
	if s.Mode == SmartcardPassthrough && s.Source != nil {
		start.Attr = append(start.Attr, attr("type", string(s.Source.Type())))
	}
	shadow := (*smartcardShadow)(s)
	return e.EncodeElement(shadow, start)
}

func (s *Smartcard) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var mode, typ string
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "mode":
			mode = at.Value
		case "type":
			typ = at.Value
		}
	}
	if err := requireEnum("smartcard mode", SmartcardMode(mode), smartcardModes); err != nil {
		return err
	}
	s.Mode = SmartcardMode(mode)
	if s.Mode == SmartcardPassthrough {
		if typ == "" {
			typ = string(ChardevTCP)
		}
		src, err := newChardevSource(ChardevSourceType(typ))
		if err != nil {
			return err
		}
		s.Source = src
	}
	return d.DecodeElement((*smartcardShadow)(s), &start)
}

// END Smartcard ------------------------------------------------------------

// BEGIN Redirected devices -------------------------------------------------

type RedirDev struct {
	XMLName xml.Name       `xml:"redirdev"`
	Bus     string         `xml:"-"`
	Source  *ChardevSource `xml:"source"`

	DeviceInfo
}

type redirdevShadow RedirDev

func (r *RedirDev) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "redirdev"
	if r.Bus != "" {
		start.Attr = append(start.Attr, attr("bus", r.Bus))
	}
	if typ := r.Source.Type(); typ != "" {
		start.Attr = append(start.Attr, attr("type", string(typ)))
	}
	return e.EncodeElement((*redirdevShadow)(r), start)
}

func (r *RedirDev) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var typ string
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "bus":
			r.Bus = at.Value
		case "type":
			typ = at.Value
		}
	}
	if typ == "" {
		return fmt.Errorf("%w: redirdev type attribute", ErrMissingField)
	}
	src, err := newChardevSource(ChardevSourceType(typ))
	if err != nil {
		return err
	}
	r.Source = src
	return d.DecodeElement((*redirdevShadow)(r), &start)
}

type USBDevFilter struct {
	Class   string `xml:"class,attr,omitempty"`
	Vendor  string `xml:"vendor,attr,omitempty"`
	Product string `xml:"product,attr,omitempty"`
	Version string `xml:"version,attr,omitempty"`
	Allow   string `xml:"allow,attr"`
}

type RedirFilter struct {
	XMLName xml.Name       `xml:"redirfilter"`
	USBDevs []USBDevFilter `xml:"usbdev"`
}

// END Redirected devices ---------------------------------------------------

type Input struct {
	XMLName xml.Name  `xml:"input"`
	Type    InputType `xml:"type,attr"`
	Bus     InputBus  `xml:"bus,attr,omitempty"`

	DeviceInfo
}

type GraphicsListen struct {
	Type    string `xml:"type,attr"`
	Address string `xml:"address,attr,omitempty"`
	Network string `xml:"network,attr,omitempty"`
}

type Graphics struct {
	XMLName       xml.Name         `xml:"graphics"`
	Type          GraphicsType     `xml:"type,attr"`
	Port          *int             `xml:"port,attr,omitempty"`
	TLSPort       *int             `xml:"tlsPort,attr,omitempty"`
	AutoPort      string           `xml:"autoport,attr,omitempty"`
	Listen        string           `xml:"listen,attr,omitempty"`
	Keymap        string           `xml:"keymap,attr,omitempty"`
	Passwd        string           `xml:"passwd,attr,omitempty"`
	PasswdValidTo string           `xml:"passwdValidTo,attr,omitempty"`
	Display       string           `xml:"display,attr,omitempty"`
	FullScreen    string           `xml:"fullscreen,attr,omitempty"`
	Listens       []GraphicsListen `xml:"listen"`
}

type SoundCodec struct {
	Type string `xml:"type,attr"`
}

type Sound struct {
	XMLName xml.Name     `xml:"sound"`
	Model   SoundModel   `xml:"model,attr"`
	Codecs  []SoundCodec `xml:"codec"`

	DeviceInfo
}

type VideoAccel struct {
	Accel3D string `xml:"accel3d,attr,omitempty"`
	Accel2D string `xml:"accel2d,attr,omitempty"`
}

type VideoModel struct {
	Type  VideoModelType `xml:"type,attr"`
	VRAM  *uint          `xml:"vram,attr,omitempty"`
	Heads *uint          `xml:"heads,attr,omitempty"`
	Accel *VideoAccel    `xml:"acceleration"`
}

type Video struct {
	XMLName xml.Name   `xml:"video"`
	Model   VideoModel `xml:"model"`

	DeviceInfo
}

// BEGIN Host devices -------------------------------------------------------

// HexID is a vendor/product id attribute formatted 0xNNNN.
type HexID struct {
	ID *uint
}

func (h *HexID) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if h.ID != nil {
		start.Attr = append(start.Attr, attr("id", fmt.Sprintf("0x%04x", *h.ID)))
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (h *HexID) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, at := range start.Attr {
		if at.Name.Local == "id" {
			if err := parseUintAttr("id", at.Value, &h.ID, 0); err != nil {
				return err
			}
		}
	}
	return d.Skip()
}

// HostDevUSBAddress identifies a host USB device by bus/device number.
type HostDevUSBAddress struct {
	Bus    *uint
	Device *uint
}

func (a *HostDevUSBAddress) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if at, ok := uintAttr("bus", a.Bus); ok {
		start.Attr = append(start.Attr, at)
	}
	if at, ok := uintAttr("device", a.Device); ok {
		start.Attr = append(start.Attr, at)
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (a *HostDevUSBAddress) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, at := range start.Attr {
		var err error
		switch at.Name.Local {
		case "bus":
			err = parseUintAttr("usb host address bus", at.Value, &a.Bus, 10)
		case "device":
			err = parseUintAttr("usb host address device", at.Value, &a.Device, 10)
		}
		if err != nil {
			return err
		}
	}
	return d.Skip()
}

// HostDevPCIAddress identifies a host PCI device by domain:bus:slot.function.
type HostDevPCIAddress struct {
	Domain   *uint
	Bus      *uint
	Slot     *uint
	Function *uint
}

func (a *HostDevPCIAddress) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	appendIf := func(at xml.Attr, ok bool) {
		if ok {
			start.Attr = append(start.Attr, at)
		}
	}
	appendIf(hexAttr("domain", a.Domain, 4))
	appendIf(hexAttr("bus", a.Bus, 2))
	appendIf(hexAttr("slot", a.Slot, 2))
	appendIf(hexAttr("function", a.Function, 1))
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (a *HostDevPCIAddress) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, at := range start.Attr {
		var err error
		switch at.Name.Local {
		case "domain":
			err = parseUintAttr("pci host address domain", at.Value, &a.Domain, 0)
		case "bus":
			err = parseUintAttr("pci host address bus", at.Value, &a.Bus, 0)
		case "slot":
			err = parseUintAttr("pci host address slot", at.Value, &a.Slot, 0)
		case "function":
			err = parseUintAttr("pci host address function", at.Value, &a.Function, 0)
		}
		if err != nil {
			return err
		}
	}
	return d.Skip()
}

// HostDevSource covers both subsystem (usb by vendor/product or bus/device,
// pci by address) and capability (storage/misc/net by node) payloads.
type HostDevSource struct {
	StartupPolicy StartupPolicy      `xml:"startupPolicy,attr,omitempty"`
	Vendor        *HexID             `xml:"vendor"`
	Product       *HexID             `xml:"product"`
	USBAddress    *HostDevUSBAddress `xml:"-"`
	PCIAddress    *HostDevPCIAddress `xml:"-"`
	Block         string             `xml:"block,omitempty"`
	Char          string             `xml:"char,omitempty"`
	Interface     string             `xml:"interface,omitempty"`
}

type HostDev struct {
	XMLName xml.Name `xml:"hostdev"`
	Mode    HostDevMode
	SubType HostDevSubsysType
	CapType HostDevCapsType
	Managed string
	Source  HostDevSource

	DeviceInfo
}

type hostDevUSBSourceShadow struct {
	StartupPolicy StartupPolicy      `xml:"startupPolicy,attr,omitempty"`
	Vendor        *HexID             `xml:"vendor"`
	Product       *HexID             `xml:"product"`
	Address       *HostDevUSBAddress `xml:"address"`
}

type hostDevPCISourceShadow struct {
	Address *HostDevPCIAddress `xml:"address"`
}

type hostDevCapsSourceShadow struct {
	Block     string `xml:"block,omitempty"`
	Char      string `xml:"char,omitempty"`
	Interface string `xml:"interface,omitempty"`
}

type hostDevBodyShadow struct {
	Source any `xml:"source"`
	DeviceInfo
}

func (h *HostDev) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "hostdev"
	start.Attr = append(start.Attr, attr("mode", string(h.Mode)))
	switch h.Mode {
	case HostDevSubsystem:
		start.Attr = append(start.Attr, attr("type", string(h.SubType)))
		if h.Managed != "" {
			start.Attr = append(start.Attr, attr("managed", h.Managed))
		}
	case HostDevCapability:
		start.Attr = append(start.Attr, attr("type", string(h.CapType)))
	}
	body := hostDevBodyShadow{DeviceInfo: h.DeviceInfo}
	switch {
	case h.Mode == HostDevSubsystem && h.SubType == HostDevSubsysUSB:
		body.Source = &hostDevUSBSourceShadow{
			StartupPolicy: h.Source.StartupPolicy,
			Vendor:        h.Source.Vendor,
			Product:       h.Source.Product,
			Address:       h.Source.USBAddress,
		}
	case h.Mode == HostDevSubsystem && h.SubType == HostDevSubsysPCI:
		body.Source = &hostDevPCISourceShadow{Address: h.Source.PCIAddress}
	default:
		body.Source = &hostDevCapsSourceShadow{
			Block:     h.Source.Block,
			Char:      h.Source.Char,
			Interface: h.Source.Interface,
		}
	}
	return e.EncodeElement(&body, start)
}

func (h *HostDev) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var mode, typ string
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "mode":
			mode = at.Value
		case "type":
			typ = at.Value
		case "managed":
			h.Managed = at.Value
		}
	}
	if mode == "" {
		mode = string(HostDevSubsystem)
	}
	if err := requireEnum("hostdev mode", HostDevMode(mode), hostDevModes); err != nil {
		return err
	}
	h.Mode = HostDevMode(mode)

	switch h.Mode {
	case HostDevSubsystem:
		if err := requireEnum("hostdev subsystem type", HostDevSubsysType(typ), hostDevSubsysTypes); err != nil {
			return err
		}
		h.SubType = HostDevSubsysType(typ)
		if h.SubType == HostDevSubsysUSB {
			var body struct {
				Source hostDevUSBSourceShadow `xml:"source"`
				DeviceInfo
			}
			if err := d.DecodeElement(&body, &start); err != nil {
				return err
			}
			h.Source = HostDevSource{
				StartupPolicy: body.Source.StartupPolicy,
				Vendor:        body.Source.Vendor,
				Product:       body.Source.Product,
				USBAddress:    body.Source.Address,
			}
			h.DeviceInfo = body.DeviceInfo
			return nil
		}
		var body struct {
			Source hostDevPCISourceShadow `xml:"source"`
			DeviceInfo
		}
		if err := d.DecodeElement(&body, &start); err != nil {
			return err
		}
		h.Source = HostDevSource{PCIAddress: body.Source.Address}
		h.DeviceInfo = body.DeviceInfo
		return nil
	default:
		if err := requireEnum("hostdev capability type", HostDevCapsType(typ), hostDevCapsTypes); err != nil {
			return err
		}
		h.CapType = HostDevCapsType(typ)
		var body struct {
			Source hostDevCapsSourceShadow `xml:"source"`
			DeviceInfo
		}
		if err := d.DecodeElement(&body, &start); err != nil {
			return err
		}
		h.Source = HostDevSource{
			Block:     body.Source.Block,
			Char:      body.Source.Char,
			Interface: body.Source.Interface,
		}
		h.DeviceInfo = body.DeviceInfo
		return nil
	}
}

// END Host devices ---------------------------------------------------------

type Hub struct {
	XMLName xml.Name `xml:"hub"`
	Type    HubType  `xml:"type,attr"`

	DeviceInfo
}

type Watchdog struct {
	XMLName xml.Name       `xml:"watchdog"`
	Model   WatchdogModel  `xml:"model,attr"`
	Action  WatchdogAction `xml:"action,attr,omitempty"`

	DeviceInfo
}

type MemBalloon struct {
	XMLName xml.Name     `xml:"memballoon"`
	Model   BalloonModel `xml:"model,attr"`

	DeviceInfo
}

type RNGRate struct {
	Bytes  uint  `xml:"bytes,attr"`
	Period *uint `xml:"period,attr,omitempty"`
}

// RNGBackend is a variant over entropy backends: a host device node, or an
// EGD daemon reached over a character device.
type RNGBackend struct {
	Model  RNGBackendModel
	Random string
	EGD    *ChardevSource
}

func (b *RNGBackend) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "backend"
	start.Attr = append(start.Attr, attr("model", string(b.Model)))
	switch b.Model {
	case RNGBackendRandom:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		if err := e.EncodeToken(xml.CharData(b.Random)); err != nil {
			return err
		}
		return e.EncodeToken(start.End())
	case RNGBackendEGD:
		start.Attr = append(start.Attr, attr("type", string(b.EGD.Type())))
		var shadow struct {
			Source *ChardevSource `xml:"source"`
		}
		shadow.Source = b.EGD
		return e.EncodeElement(&shadow, start)
	}
	return nil
}

func (b *RNGBackend) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var model, typ string
	for _, at := range start.Attr {
		switch at.Name.Local {
		case "model":
			model = at.Value
		case "type":
			typ = at.Value
		}
	}
	if err := requireEnum("rng backend model", RNGBackendModel(model), rngBackendModels); err != nil {
		return err
	}
	b.Model = RNGBackendModel(model)
	switch b.Model {
	case RNGBackendRandom:
		var body struct {
			Path string `xml:",chardata"`
		}
		if err := d.DecodeElement(&body, &start); err != nil {
			return err
		}
		b.Random = body.Path
		return nil
	default:
		if typ == "" {
			typ = string(ChardevUDP)
		}
		src, err := newChardevSource(ChardevSourceType(typ))
		if err != nil {
			return err
		}
		b.EGD = src
		var body struct {
			Source *ChardevSource `xml:"source"`
		}
		body.Source = src
		return d.DecodeElement(&body, &start)
	}
}

type RNG struct {
	XMLName xml.Name    `xml:"rng"`
	Model   RNGModel    `xml:"model,attr"`
	Rate    *RNGRate    `xml:"rate"`
	Backend *RNGBackend `xml:"backend"`

	DeviceInfo
}
