package domain

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// AddressType discriminates the device address variant.
type AddressType string

const (
	AddressNone         AddressType = ""
	AddressPCIType      AddressType = "pci"
	AddressDriveType    AddressType = "drive"
	AddressVirtioSerial AddressType = "virtio-serial"
	AddressCCIDType     AddressType = "ccid"
	AddressUSBType      AddressType = "usb"
	AddressSpaprVIOType AddressType = "spapr-vio"
	AddressCCWType      AddressType = "ccw"
)

type AddressPCI struct {
	Domain        *uint
	Bus           *uint
	Slot          *uint
	Function      *uint
	MultiFunction string
}

type AddressDrive struct {
	Controller *uint
	Bus        *uint
	Target     *uint
	Unit       *uint
}

type AddressVSerial struct {
	Controller *uint
	Bus        *uint
	Port       *uint
}

type AddressCCID struct {
	Controller *uint
	Slot       *uint
}

// AddressUSB holds a bus plus a dotted port path, e.g. "1.2.3.4" (at most
// four hub levels deep).
type AddressUSB struct {
	Bus  *uint
	Port string
}

type AddressSpaprVIO struct {
	Reg *uint64
}

type AddressCCW struct {
	CSSID *uint
	SSID  *uint
	DevNo *uint
}

// Address is the polymorphic "where is this device attached" value. Exactly
// one arm is non-nil; a zero Address means no explicit placement.
type Address struct {
	PCI      *AddressPCI
	Drive    *AddressDrive
	VSerial  *AddressVSerial
	CCID     *AddressCCID
	USB      *AddressUSB
	SpaprVIO *AddressSpaprVIO
	CCW      *AddressCCW
}

// Type reports which arm is populated.
func (a *Address) Type() AddressType {
	switch {
	case a == nil:
		return AddressNone
	case a.PCI != nil:
		return AddressPCIType
	case a.Drive != nil:
		return AddressDriveType
	case a.VSerial != nil:
		return AddressVirtioSerial
	case a.CCID != nil:
		return AddressCCIDType
	case a.USB != nil:
		return AddressUSBType
	case a.SpaprVIO != nil:
		return AddressSpaprVIOType
	case a.CCW != nil:
		return AddressCCWType
	}
	return AddressNone
}

// IsValid reports whether the address matches one of the expected types.
// AddressNone in the allowed set accepts an absent address.
func (a *Address) IsValid(allowed ...AddressType) bool {
	typ := a.Type()
	for _, want := range allowed {
		if typ == want {
			return true
		}
	}
	return false
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func uintAttr(name string, v *uint) (xml.Attr, bool) {
	if v == nil {
		return xml.Attr{}, false
	}
	return attr(name, strconv.FormatUint(uint64(*v), 10)), true
}

func hexAttr(name string, v *uint, width int) (xml.Attr, bool) {
	if v == nil {
		return xml.Attr{}, false
	}
	return attr(name, fmt.Sprintf("0x%0*x", width, *v)), true
}

func parseUintAttr(what, val string, out **uint, base int) error {
	if base == 0 && strings.HasPrefix(val, "0x") {
		base = 16
		val = strings.TrimPrefix(val, "0x")
	} else if base == 0 {
		base = 10
	}
	n, err := strconv.ParseUint(val, base, 32)
	if err != nil {
		return fmt.Errorf("%w: cannot parse %s %q", ErrInvalidValue, what, val)
	}
	u := uint(n)
	*out = &u
	return nil
}

func (a *Address) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	appendIf := func(at xml.Attr, ok bool) {
		if ok {
			start.Attr = append(start.Attr, at)
		}
	}
	switch a.Type() {
	case AddressPCIType:
		start.Attr = append(start.Attr, attr("type", "pci"))
		appendIf(hexAttr("domain", a.PCI.Domain, 4))
		appendIf(hexAttr("bus", a.PCI.Bus, 2))
		appendIf(hexAttr("slot", a.PCI.Slot, 2))
		appendIf(hexAttr("function", a.PCI.Function, 1))
		if a.PCI.MultiFunction != "" {
			start.Attr = append(start.Attr, attr("multifunction", a.PCI.MultiFunction))
		}
	case AddressDriveType:
		start.Attr = append(start.Attr, attr("type", "drive"))
		appendIf(uintAttr("controller", a.Drive.Controller))
		appendIf(uintAttr("bus", a.Drive.Bus))
		appendIf(uintAttr("target", a.Drive.Target))
		appendIf(uintAttr("unit", a.Drive.Unit))
	case AddressVirtioSerial:
		start.Attr = append(start.Attr, attr("type", "virtio-serial"))
		appendIf(uintAttr("controller", a.VSerial.Controller))
		appendIf(uintAttr("bus", a.VSerial.Bus))
		appendIf(uintAttr("port", a.VSerial.Port))
	case AddressCCIDType:
		start.Attr = append(start.Attr, attr("type", "ccid"))
		appendIf(uintAttr("controller", a.CCID.Controller))
		appendIf(uintAttr("slot", a.CCID.Slot))
	case AddressUSBType:
		start.Attr = append(start.Attr, attr("type", "usb"))
		appendIf(uintAttr("bus", a.USB.Bus))
		if a.USB.Port != "" {
			start.Attr = append(start.Attr, attr("port", a.USB.Port))
		}
	case AddressSpaprVIOType:
		start.Attr = append(start.Attr, attr("type", "spapr-vio"))
		if a.SpaprVIO.Reg != nil {
			start.Attr = append(start.Attr, attr("reg", fmt.Sprintf("0x%08x", *a.SpaprVIO.Reg)))
		}
	case AddressCCWType:
		start.Attr = append(start.Attr, attr("type", "ccw"))
		appendIf(hexAttr("cssid", a.CCW.CSSID, 1))
		appendIf(hexAttr("ssid", a.CCW.SSID, 1))
		appendIf(hexAttr("devno", a.CCW.DevNo, 4))
	case AddressNone:
		return nil
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (a *Address) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var typ string
	for _, at := range start.Attr {
		if at.Name.Local == "type" {
			typ = at.Value
			break
		}
	}
	if typ == "" {
		return fmt.Errorf("%w: address type attribute", ErrMissingField)
	}
	var err error
	switch AddressType(typ) {
	case AddressPCIType:
		a.PCI = &AddressPCI{}
		err = a.PCI.unmarshalAttrs(start.Attr)
	case AddressDriveType:
		a.Drive = &AddressDrive{}
		err = a.Drive.unmarshalAttrs(start.Attr)
	case AddressVirtioSerial:
		a.VSerial = &AddressVSerial{}
		err = a.VSerial.unmarshalAttrs(start.Attr)
	case AddressCCIDType:
		a.CCID = &AddressCCID{}
		err = a.CCID.unmarshalAttrs(start.Attr)
	case AddressUSBType:
		a.USB = &AddressUSB{}
		err = a.USB.unmarshalAttrs(start.Attr)
	case AddressSpaprVIOType:
		a.SpaprVIO = &AddressSpaprVIO{}
		err = a.SpaprVIO.unmarshalAttrs(start.Attr)
	case AddressCCWType:
		a.CCW = &AddressCCW{}
		err = a.CCW.unmarshalAttrs(start.Attr)
	default:
		return fmt.Errorf("%w: unsupported address type %q", ErrInvalidValue, typ)
	}
	if err != nil {
		return err
	}
	return d.Skip()
}

func (a *AddressPCI) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		var err error
		switch at.Name.Local {
		case "domain":
			err = parseUintAttr("pci domain", at.Value, &a.Domain, 0)
		case "bus":
			err = parseUintAttr("pci bus", at.Value, &a.Bus, 0)
		case "slot":
			err = parseUintAttr("pci slot", at.Value, &a.Slot, 0)
		case "function":
			err = parseUintAttr("pci function", at.Value, &a.Function, 0)
		case "multifunction":
			a.MultiFunction = at.Value
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *AddressDrive) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		var err error
		switch at.Name.Local {
		case "controller":
			err = parseUintAttr("drive controller", at.Value, &a.Controller, 10)
		case "bus":
			err = parseUintAttr("drive bus", at.Value, &a.Bus, 10)
		case "target":
			err = parseUintAttr("drive target", at.Value, &a.Target, 10)
		case "unit":
			err = parseUintAttr("drive unit", at.Value, &a.Unit, 10)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *AddressVSerial) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		var err error
		switch at.Name.Local {
		case "controller":
			err = parseUintAttr("virtio-serial controller", at.Value, &a.Controller, 10)
		case "bus":
			err = parseUintAttr("virtio-serial bus", at.Value, &a.Bus, 10)
		case "port":
			err = parseUintAttr("virtio-serial port", at.Value, &a.Port, 10)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *AddressCCID) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		var err error
		switch at.Name.Local {
		case "controller":
			err = parseUintAttr("ccid controller", at.Value, &a.Controller, 10)
		case "slot":
			err = parseUintAttr("ccid slot", at.Value, &a.Slot, 10)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *AddressUSB) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		switch at.Name.Local {
		case "bus":
			if err := parseUintAttr("usb bus", at.Value, &a.Bus, 10); err != nil {
				return err
			}
		case "port":
			if err := validateUSBPort(at.Value); err != nil {
				return err
			}
			a.Port = at.Value
		}
	}
	return nil
}

// validateUSBPort accepts dotted decimal port paths up to four levels deep.
func validateUSBPort(port string) error {
	parts := strings.Split(port, ".")
	if len(parts) > 4 {
		return fmt.Errorf("%w: usb port %q exceeds four hub levels", ErrInvalidValue, port)
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 32); err != nil {
			return fmt.Errorf("%w: cannot parse usb port %q", ErrInvalidValue, port)
		}
	}
	return nil
}

func (a *AddressSpaprVIO) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		if at.Name.Local != "reg" {
			continue
		}
		val := strings.TrimPrefix(at.Value, "0x")
		n, err := strconv.ParseUint(val, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: cannot parse spapr-vio reg %q", ErrInvalidValue, at.Value)
		}
		a.Reg = &n
	}
	return nil
}

func (a *AddressCCW) unmarshalAttrs(attrs []xml.Attr) error {
	for _, at := range attrs {
		var err error
		switch at.Name.Local {
		case "cssid":
			err = parseUintAttr("ccw cssid", at.Value, &a.CSSID, 0)
		case "ssid":
			err = parseUintAttr("ccw ssid", at.Value, &a.SSID, 0)
		case "devno":
			err = parseUintAttr("ccw devno", at.Value, &a.DevNo, 0)
		}
		if err != nil {
			return err
		}
	}
	if a.CSSID != nil && *a.CSSID > 254 {
		return fmt.Errorf("%w: ccw cssid %d out of range 0-254", ErrInvalidValue, *a.CSSID)
	}
	if a.SSID != nil && *a.SSID > 3 {
		return fmt.Errorf("%w: ccw ssid %d out of range 0-3", ErrInvalidValue, *a.SSID)
	}
	if a.DevNo != nil && *a.DevNo > 0xffff {
		return fmt.Errorf("%w: ccw devno %d out of range 0-65535", ErrInvalidValue, *a.DevNo)
	}
	return nil
}

// Equal compares two addresses structurally, including the variant tag.
func (a *Address) Equal(b *Address) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a.Type() {
	case AddressNone:
		return true
	case AddressPCIType:
		return uintPtrEq(a.PCI.Domain, b.PCI.Domain) && uintPtrEq(a.PCI.Bus, b.PCI.Bus) &&
			uintPtrEq(a.PCI.Slot, b.PCI.Slot) && uintPtrEq(a.PCI.Function, b.PCI.Function)
	case AddressDriveType:
		return uintPtrEq(a.Drive.Controller, b.Drive.Controller) && uintPtrEq(a.Drive.Bus, b.Drive.Bus) &&
			uintPtrEq(a.Drive.Target, b.Drive.Target) && uintPtrEq(a.Drive.Unit, b.Drive.Unit)
	case AddressVirtioSerial:
		return uintPtrEq(a.VSerial.Controller, b.VSerial.Controller) && uintPtrEq(a.VSerial.Bus, b.VSerial.Bus) &&
			uintPtrEq(a.VSerial.Port, b.VSerial.Port)
	case AddressCCIDType:
		return uintPtrEq(a.CCID.Controller, b.CCID.Controller) && uintPtrEq(a.CCID.Slot, b.CCID.Slot)
	case AddressUSBType:
		return uintPtrEq(a.USB.Bus, b.USB.Bus) && a.USB.Port == b.USB.Port
	case AddressSpaprVIOType:
		return (a.SpaprVIO.Reg == nil) == (b.SpaprVIO.Reg == nil) &&
			(a.SpaprVIO.Reg == nil || *a.SpaprVIO.Reg == *b.SpaprVIO.Reg)
	case AddressCCWType:
		return uintPtrEq(a.CCW.CSSID, b.CCW.CSSID) && uintPtrEq(a.CCW.SSID, b.CCW.SSID) &&
			uintPtrEq(a.CCW.DevNo, b.CCW.DevNo)
	}
	return false
}

func uintPtrEq(a, b *uint) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Alias is the device alias assigned by the hypervisor driver.
type Alias struct {
	Name string `xml:"name,attr"`
}

// BootOrder is the per-device boot index; orders must be contiguous from 1
// across the whole definition.
type BootOrder struct {
	Order uint `xml:"order,attr"`
}

// ROM overrides PCI ROM exposure for a device.
type ROM struct {
	Bar  string `xml:"bar,attr,omitempty"`
	File string `xml:"file,attr,omitempty"`
}

// USBMaster ties a USB companion controller to its master's start port.
type USBMaster struct {
	StartPort uint `xml:"startport,attr"`
}

// DeviceInfo is embedded in every device: alias, boot index, ROM override
// and the polymorphic address.
type DeviceInfo struct {
	Alias   *Alias     `xml:"alias"`
	Master  *USBMaster `xml:"master"`
	Boot    *BootOrder `xml:"boot"`
	ROM     *ROM       `xml:"rom"`
	Address *Address   `xml:"address"`
}
