package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskNameToIndex(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"sda", 0},
		{"sdb", 1},
		{"sdz", 25},
		{"sdaa", 26},
		{"sdab", 27},
		{"hdc", 2},
		{"vda", 0},
		{"xvdb", 1},
		{"fdb", 1},
	}
	for _, tt := range tests {
		got, err := DiskNameToIndex(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := DiskNameToIndex("cdrom0")
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = DiskNameToIndex("sd")
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestDefaultDriveAddress(t *testing.T) {
	tests := []struct {
		bus                     DiskBus
		idx                     int
		wide                    bool
		controller, busNo, unit uint
	}{
		{bus: DiskBusIDE, idx: 0, controller: 0, busNo: 0, unit: 0},
		{bus: DiskBusIDE, idx: 1, controller: 0, busNo: 0, unit: 1},
		{bus: DiskBusIDE, idx: 2, controller: 0, busNo: 1, unit: 0},
		{bus: DiskBusIDE, idx: 3, controller: 0, busNo: 1, unit: 1},
		{bus: DiskBusIDE, idx: 4, controller: 1, busNo: 0, unit: 0},
		{bus: DiskBusSATA, idx: 5, controller: 0, busNo: 0, unit: 5},
		{bus: DiskBusSATA, idx: 6, controller: 1, busNo: 0, unit: 0},
		{bus: DiskBusSCSI, idx: 6, controller: 0, busNo: 0, unit: 6},
		{bus: DiskBusSCSI, idx: 7, controller: 1, busNo: 0, unit: 0},
		{bus: DiskBusSCSI, idx: 6, wide: true, controller: 0, busNo: 0, unit: 6},
		// unit 7 is the adapter's own id on a wide bus
		{bus: DiskBusSCSI, idx: 7, wide: true, controller: 0, busNo: 0, unit: 8},
		{bus: DiskBusSCSI, idx: 14, wide: true, controller: 0, busNo: 0, unit: 15},
		{bus: DiskBusSCSI, idx: 15, wide: true, controller: 1, busNo: 0, unit: 0},
		{bus: DiskBusFDC, idx: 3, controller: 1, busNo: 0, unit: 1},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%s/%d/wide=%v", tt.bus, tt.idx, tt.wide)
		addr := defaultDriveAddress(tt.bus, tt.idx, tt.wide)
		require.NotNil(t, addr, name)
		assert.Equal(t, tt.controller, *addr.Controller, name)
		assert.Equal(t, tt.busNo, *addr.Bus, name)
		assert.Equal(t, tt.unit, *addr.Unit, name)
	}
}

func TestAssignDiskAddresses_Deterministic(t *testing.T) {
	// the address depends on the target name alone, not on sibling disks
	mk := func(devs ...string) *Definition {
		def := &Definition{}
		for _, d := range devs {
			def.Devices.Disks = append(def.Devices.Disks, &Disk{
				Target: DiskTarget{Dev: d, Bus: DiskBusSCSI},
			})
		}
		return def
	}

	solo := mk("sdc")
	require.NoError(t, AssignDiskAddresses(solo, false))
	crowd := mk("sda", "sdb", "sdc")
	require.NoError(t, AssignDiskAddresses(crowd, false))

	assert.True(t, solo.Devices.Disks[0].DeviceInfo.Address.Equal(
		crowd.Devices.Disks[2].DeviceInfo.Address))
}

func TestAssignDiskAddresses_ExplicitKept(t *testing.T) {
	def := &Definition{}
	def.Devices.Disks = []*Disk{{
		Target: DiskTarget{Dev: "sda", Bus: DiskBusSCSI},
		DeviceInfo: DeviceInfo{Address: &Address{Drive: &AddressDrive{
			Controller: uintp(3), Bus: uintp(0), Unit: uintp(5),
		}}},
	}}
	require.NoError(t, AssignDiskAddresses(def, false))
	assert.Equal(t, uint(3), *def.Devices.Disks[0].DeviceInfo.Address.Drive.Controller)
}

func TestAssignDiskAddresses_WrongAddressType(t *testing.T) {
	def := &Definition{}
	def.Devices.Disks = []*Disk{{
		Target:     DiskTarget{Dev: "sda", Bus: DiskBusSCSI},
		DeviceInfo: DeviceInfo{Address: &Address{PCI: &AddressPCI{Slot: uintp(4)}}},
	}}
	require.ErrorIs(t, AssignDiskAddresses(def, false), ErrConflict)
}

func TestAddImplicitControllers_DriveBuses(t *testing.T) {
	// sdp on a narrow bus lands on controller 2: controllers 0,1,2 appear
	def := &Definition{}
	def.Devices.Disks = []*Disk{{Target: DiskTarget{Dev: "sdp", Bus: DiskBusSCSI}}}
	require.NoError(t, AssignDiskAddresses(def, false))
	require.NoError(t, AddImplicitControllers(def))

	var indexes []uint
	for _, c := range def.Devices.Controllers {
		require.Equal(t, ControllerSCSI, c.Type)
		indexes = append(indexes, *c.Index)
	}
	assert.Equal(t, []uint{0, 1, 2}, indexes)
}

func TestAddImplicitControllers_KeepsDeclared(t *testing.T) {
	def := &Definition{}
	def.Devices.Controllers = []*Controller{{Type: ControllerSCSI, Index: uintp(0), Model: "virtio-scsi"}}
	def.Devices.Disks = []*Disk{{Target: DiskTarget{Dev: "sda", Bus: DiskBusSCSI}}}
	require.NoError(t, AssignDiskAddresses(def, false))
	require.NoError(t, AddImplicitControllers(def))

	require.Len(t, def.Devices.Controllers, 1)
	assert.Equal(t, "virtio-scsi", def.Devices.Controllers[0].Model)
}

func TestAddImplicitControllers_VirtioSerial(t *testing.T) {
	def := &Definition{}
	def.Devices.Channels = []*Channel{{
		Target: &ChannelTarget{Type: ChannelTargetVirtio, Name: "org.qemu.guest_agent.0"},
		DeviceInfo: DeviceInfo{Address: &Address{VSerial: &AddressVSerial{
			Controller: uintp(2), Port: uintp(1),
		}}},
	}}
	require.NoError(t, AddImplicitControllers(def))

	require.Len(t, def.Devices.Controllers, 1)
	assert.Equal(t, ControllerVirtioSerial, def.Devices.Controllers[0].Type)
	assert.Equal(t, uint(2), *def.Devices.Controllers[0].Index)
}

func TestAddImplicitControllers_Smartcards(t *testing.T) {
	def := &Definition{}
	def.Devices.Smartcards = []*Smartcard{
		{Mode: SmartcardHost},
		{Mode: SmartcardHost, DeviceInfo: DeviceInfo{Address: &Address{CCID: &AddressCCID{
			Controller: uintp(0), Slot: uintp(0),
		}}}},
	}
	require.NoError(t, AddImplicitControllers(def))

	// slot 0 is taken by the explicit address, the other card gets slot 1
	auto := def.Devices.Smartcards[0].DeviceInfo.Address
	require.NotNil(t, auto)
	assert.Equal(t, uint(1), *auto.CCID.Slot)

	require.Len(t, def.Devices.Controllers, 1)
	assert.Equal(t, ControllerCCID, def.Devices.Controllers[0].Type)
}
