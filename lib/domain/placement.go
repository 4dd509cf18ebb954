package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// diskNamePrefixes are the recognized target device name stems, longest
// first so "xvd" wins over "vd".
var diskNamePrefixes = []string{"xvd", "ubd", "vd", "sd", "hd", "fd"}

// DiskNameToIndex turns a target device name like "sda" or "vdaa" into its
// zero-based index ("sda" is 0, "sdz" 25, "sdaa" 26).
func DiskNameToIndex(name string) (int, error) {
	prefix, ok := lo.Find(diskNamePrefixes, func(p string) bool {
		return strings.HasPrefix(name, p)
	})
	if !ok {
		return 0, fmt.Errorf("%w: unrecognized disk target name %q", ErrInvalidValue, name)
	}
	rest := name[len(prefix):]
	if rest == "" {
		return 0, fmt.Errorf("%w: disk target name %q has no index letters", ErrInvalidValue, name)
	}
	idx := 0
	for _, c := range rest {
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("%w: disk target name %q", ErrInvalidValue, name)
		}
		idx = idx*26 + int(c-'a') + 1
	}
	return idx - 1, nil
}

// driveAddressBuses are the disk buses whose placement is a drive address.
var driveAddressBuses = []DiskBus{DiskBusIDE, DiskBusSCSI, DiskBusSATA, DiskBusFDC}

func uintp(v uint) *uint { return &v }

// defaultDriveAddress derives the drive address a disk would get from its
// target name alone.
//
// Unit 7 on a wide SCSI bus belongs to the host adapter, so the usable
// units per controller are 0-6 and 8-15.
func defaultDriveAddress(bus DiskBus, idx int, wideSCSI bool) *AddressDrive {
	var controller, busNo, unit int
	switch bus {
	case DiskBusIDE:
		controller = idx / 4
		busNo = (idx % 4) / 2
		unit = idx % 2
	case DiskBusSATA:
		controller = idx / 6
		unit = idx % 6
	case DiskBusSCSI:
		if wideSCSI {
			controller = idx / 15
			unit = idx % 15
			if unit >= 7 {
				unit++
			}
		} else {
			controller = idx / 7
			unit = idx % 7
		}
	case DiskBusFDC:
		controller = idx / 2
		unit = idx % 2
	default:
		return nil
	}
	return &AddressDrive{
		Controller: uintp(uint(controller)),
		Bus:        uintp(uint(busNo)),
		Unit:       uintp(uint(unit)),
	}
}

// AssignDiskAddresses fills in drive addresses for disks on drive-addressed
// buses that do not carry an explicit address. The result is deterministic:
// the address depends only on the target name and bus, never on the order
// other disks appear in.
func AssignDiskAddresses(def *Definition, wideSCSI bool) error {
	for _, disk := range def.Devices.Disks {
		if !lo.Contains(driveAddressBuses, disk.Target.Bus) {
			continue
		}
		if typ := disk.DeviceInfo.Address.Type(); typ != AddressNone {
			if typ != AddressDriveType {
				return fmt.Errorf("%w: disk %q on bus %q requires a drive address, has %q",
					ErrConflict, disk.Target.Dev, disk.Target.Bus, typ)
			}
			continue
		}
		idx, err := DiskNameToIndex(disk.Target.Dev)
		if err != nil {
			return err
		}
		disk.DeviceInfo.Address = &Address{Drive: defaultDriveAddress(disk.Target.Bus, idx, wideSCSI)}
	}
	return nil
}

// controllerBusFor maps a drive-addressed disk bus to its controller type.
var controllerBusFor = map[DiskBus]ControllerType{
	DiskBusIDE:  ControllerIDE,
	DiskBusSCSI: ControllerSCSI,
	DiskBusSATA: ControllerSATA,
	DiskBusFDC:  ControllerFDC,
}

// AddImplicitControllers synthesizes the controllers the configured devices
// require but the document does not declare:
//
//   - for each drive-addressed disk bus, controllers 0 through the highest
//     referenced index
//   - a virtio-serial controller for every index referenced by a
//     virtio-serial address
//   - a ccid controller for every smartcard; smartcards without an address
//     are placed on controller 0 at the next free slot
func AddImplicitControllers(def *Definition) error {
	existing := map[ControllerType]map[uint]bool{}
	for _, c := range def.Devices.Controllers {
		if existing[c.Type] == nil {
			existing[c.Type] = map[uint]bool{}
		}
		if c.Index != nil {
			existing[c.Type][*c.Index] = true
		} else {
			existing[c.Type][0] = true
		}
	}

	add := func(typ ControllerType, index uint) {
		if existing[typ][index] {
			return
		}
		if existing[typ] == nil {
			existing[typ] = map[uint]bool{}
		}
		existing[typ][index] = true
		def.Devices.Controllers = append(def.Devices.Controllers, &Controller{
			Type:  typ,
			Index: uintp(index),
		})
	}

	// Drive buses get a contiguous run of controllers up to the highest
	// index any disk references.
	maxIdx := map[ControllerType]int{}
	for _, disk := range def.Devices.Disks {
		ctype, ok := controllerBusFor[disk.Target.Bus]
		if !ok {
			continue
		}
		addr := disk.DeviceInfo.Address
		if addr == nil || addr.Drive == nil || addr.Drive.Controller == nil {
			continue
		}
		idx := int(*addr.Drive.Controller)
		if cur, seen := maxIdx[ctype]; !seen || idx > cur {
			maxIdx[ctype] = idx
		}
	}
	types := lo.Keys(maxIdx)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, ctype := range types {
		for i := 0; i <= maxIdx[ctype]; i++ {
			add(ctype, uint(i))
		}
	}

	for _, idx := range referencedVirtioSerialControllers(def) {
		add(ControllerVirtioSerial, idx)
	}

	if err := placeSmartcards(def, existing); err != nil {
		return err
	}
	for _, sc := range def.Devices.Smartcards {
		if sc.DeviceInfo.Address != nil && sc.DeviceInfo.Address.CCID != nil &&
			sc.DeviceInfo.Address.CCID.Controller != nil {
			add(ControllerCCID, *sc.DeviceInfo.Address.CCID.Controller)
		}
	}
	return nil
}

func referencedVirtioSerialControllers(def *Definition) []uint {
	seen := map[uint]bool{}
	var out []uint
	note := func(a *Address) {
		if a == nil || a.VSerial == nil || a.VSerial.Controller == nil {
			return
		}
		if idx := *a.VSerial.Controller; !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	for _, ch := range def.Devices.Channels {
		note(ch.DeviceInfo.Address)
	}
	for _, c := range def.Devices.Consoles {
		note(c.DeviceInfo.Address)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// placeSmartcards assigns ccid addresses on controller 0 to smartcards that
// lack one, using the lowest free slot.
func placeSmartcards(def *Definition, existing map[ControllerType]map[uint]bool) error {
	if len(def.Devices.Smartcards) == 0 {
		return nil
	}
	used := map[uint]bool{}
	for _, sc := range def.Devices.Smartcards {
		a := sc.DeviceInfo.Address
		if a == nil {
			continue
		}
		if a.CCID == nil {
			return fmt.Errorf("%w: smartcard requires a ccid address, has %q", ErrConflict, a.Type())
		}
		if (a.CCID.Controller == nil || *a.CCID.Controller == 0) && a.CCID.Slot != nil {
			used[*a.CCID.Slot] = true
		}
	}
	nextSlot := uint(0)
	for _, sc := range def.Devices.Smartcards {
		if sc.DeviceInfo.Address != nil {
			continue
		}
		for used[nextSlot] {
			nextSlot++
		}
		used[nextSlot] = true
		sc.DeviceInfo.Address = &Address{CCID: &AddressCCID{
			Controller: uintp(0),
			Slot:       uintp(nextSlot),
		}}
	}
	return nil
}
