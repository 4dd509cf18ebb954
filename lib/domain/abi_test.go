package domain

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abiTestDef(t *testing.T) *Definition {
	t.Helper()
	doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <uuid>0f0b7f13-571b-4a4a-8a3b-3e1e8f1a2b3c</uuid>
  <memory unit='KiB'>1048576</memory>
  <vcpu current='2'>4</vcpu>
  <sysinfo type='smbios'>
    <system>
      <entry name='manufacturer'>ACME</entry>
    </system>
  </sysinfo>
  <os>
    <type arch='x86_64' machine='pc-i440fx-2.9'>hvm</type>
    <smbios mode='sysinfo'/>
  </os>
  <features>
    <acpi/>
    <apic/>
  </features>
  <cpu mode='custom' match='exact'>
    <model>Nehalem</model>
    <topology sockets='2' cores='2' threads='1'/>
    <feature policy='require' name='vmx'/>
  </cpu>
  <clock offset='utc'>
    <timer name='tsc' frequency='3000000000'/>
  </clock>
  <devices>
    <disk type='file'>
      <source file='/var/lib/images/demo.qcow2'/>
      <target dev='sda' bus='scsi'/>
    </disk>
    <interface type='network'>
      <mac address='52:54:00:aa:bb:cc'/>
      <source network='default'/>
      <model type='virtio'/>
    </interface>
    <video>
      <model type='cirrus' vram='16384' heads='1'/>
    </video>
    <watchdog model='i6300esb' action='reset'/>
    <memballoon model='virtio'/>
    <rng model='virtio'>
      <backend model='random'>/dev/urandom</backend>
    </rng>
  </devices>
</domain>`)
	def, err := Parse(doc, nil)
	require.NoError(t, err)
	return def
}

func TestABIStability_SelfCompatible(t *testing.T) {
	src := abiTestDef(t)
	dst := abiTestDef(t)
	require.NoError(t, CheckABIStability(src, dst))
}

func TestABIStability_Mismatches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(def *Definition)
		field  string
	}{
		{
			name:   "virt type",
			mutate: func(d *Definition) { d.Type = VirtQEMU },
			field:  "domain type",
		},
		{
			name:   "uuid",
			mutate: func(d *Definition) { d.UUID = "11111111-2222-3333-4444-555555555555" },
			field:  "domain uuid",
		},
		{
			name:   "maximum memory",
			mutate: func(d *Definition) { d.Memory.Value *= 2 },
			field:  "maximum memory",
		},
		{
			name:   "current vcpus",
			mutate: func(d *Definition) { *d.VCPU.Current = 3 },
			field:  "current vcpus",
		},
		{
			name:   "machine type",
			mutate: func(d *Definition) { d.OS.Type.Machine = "pc-i440fx-2.10" },
			field:  "os machine",
		},
		{
			name:   "acpi dropped",
			mutate: func(d *Definition) { d.Features.ACPI = nil },
			field:  "feature acpi",
		},
		{
			name:   "tsc frequency",
			mutate: func(d *Definition) { *d.Clock.Timers[0].Frequency = 2500000000 },
			field:  "tsc frequency",
		},
		{
			name:   "cpu model",
			mutate: func(d *Definition) { d.CPU.Model.Value = "Westmere" },
			field:  "cpu model",
		},
		{
			name:   "sysinfo entry",
			mutate: func(d *Definition) { d.SysInfo.System.Entries[0].Value = "Globex" },
			field:  "sysinfo system entry manufacturer",
		},
		{
			name:   "disk removed",
			mutate: func(d *Definition) { d.Devices.Disks = nil },
			field:  "disk count",
		},
		{
			name:   "disk bus",
			mutate: func(d *Definition) { d.Devices.Disks[0].Target.Bus = DiskBusVirtio },
			field:  "disk sda bus",
		},
		{
			name: "disk address",
			mutate: func(d *Definition) {
				*d.Devices.Disks[0].DeviceInfo.Address.Drive.Unit = 5
			},
			field: "disk sda address",
		},
		{
			name:   "controller removed",
			mutate: func(d *Definition) { d.Devices.Controllers = nil },
			field:  "controller count",
		},
		{
			name:   "interface model",
			mutate: func(d *Definition) { d.Devices.Interfaces[0].Model.Type = "e1000" },
			field:  "interface 52:54:00:aa:bb:cc model",
		},
		{
			name:   "video vram",
			mutate: func(d *Definition) { *d.Devices.Videos[0].Model.VRAM = 32768 },
			field:  "video vram",
		},
		{
			name:   "watchdog model",
			mutate: func(d *Definition) { d.Devices.Watchdogs[0].Model = WatchdogIB700 },
			field:  "watchdog model",
		},
		{
			name:   "balloon model",
			mutate: func(d *Definition) { d.Devices.MemBalloons[0].Model = BalloonNone },
			field:  "memballoon model",
		},
		{
			name:   "rng backend",
			mutate: func(d *Definition) { d.Devices.RNGs[0].Backend.Model = RNGBackendEGD },
			field:  "rng backend model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := abiTestDef(t)
			dst := abiTestDef(t)
			tt.mutate(dst)
			err := CheckABIStability(src, dst)
			require.ErrorIs(t, err, ErrABIMismatch)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestABIStability_TimerListCompared(t *testing.T) {
	withHPET := func(present string) *Definition {
		def := abiTestDef(t)
		def.Clock.Timers = append(def.Clock.Timers, Timer{Name: TimerHPET, Present: present})
		return def
	}

	require.NoError(t, CheckABIStability(withHPET("no"), withHPET("no")))

	err := CheckABIStability(withHPET("no"), withHPET("yes"))
	require.ErrorIs(t, err, ErrABIMismatch)
	assert.Contains(t, err.Error(), "hpet timer presence")

	err = CheckABIStability(abiTestDef(t), withHPET("yes"))
	require.ErrorIs(t, err, ErrABIMismatch)
	assert.Contains(t, err.Error(), "timer count")
}

func TestABIStability_RedirFilterRules(t *testing.T) {
	withFilter := func(allow string) *Definition {
		def := abiTestDef(t)
		def.Devices.RedirFilters = []*RedirFilter{{
			USBDevs: []USBDevFilter{{Class: "0x08", Vendor: "0x1234", Allow: allow}},
		}}
		return def
	}

	require.NoError(t, CheckABIStability(withFilter("yes"), withFilter("yes")))

	err := CheckABIStability(withFilter("yes"), withFilter("no"))
	require.ErrorIs(t, err, ErrABIMismatch)
	assert.Contains(t, err.Error(), "redirfilter rule")

	err = CheckABIStability(withFilter("yes"), abiTestDef(t))
	require.ErrorIs(t, err, ErrABIMismatch)
	assert.Contains(t, err.Error(), "redirfilter count")
}

func TestABIStability_HostdevInterfaceCountsAsHostdev(t *testing.T) {
	hostdevSide := []byte(`<domain type='kvm'>
  <name>demo</name>
  <uuid>0f0b7f13-571b-4a4a-8a3b-3e1e8f1a2b3c</uuid>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices>
    <hostdev mode='subsystem' type='pci' managed='yes'>
      <source>
        <address domain='0x0000' bus='0x06' slot='0x02' function='0x0'/>
      </source>
    </hostdev>
  </devices>
</domain>`)
	ifaceSide := []byte(`<domain type='kvm'>
  <name>demo</name>
  <uuid>0f0b7f13-571b-4a4a-8a3b-3e1e8f1a2b3c</uuid>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices>
    <interface type='hostdev' managed='yes'>
      <mac address='52:54:00:6d:90:02'/>
      <source>
        <address type='pci' domain='0x0000' bus='0x06' slot='0x02' function='0x0'/>
      </source>
    </interface>
  </devices>
</domain>`)
	src, err := Parse(hostdevSide, nil)
	require.NoError(t, err)
	dst, err := Parse(ifaceSide, nil)
	require.NoError(t, err)

	// the payload shows up on both sides, but the interface list differs
	err = CheckABIStability(src, dst)
	require.ErrorIs(t, err, ErrABIMismatch)
	assert.Contains(t, err.Error(), "interface count")

	// against itself the interface-owned payload matches
	dst2, err := Parse(ifaceSide, nil)
	require.NoError(t, err)
	require.NoError(t, CheckABIStability(dst, dst2))
}

// TestABIStability_CoversEveryDeviceList fails when a new device list is
// added to Devices without teaching the comparator about it.
func TestABIStability_CoversEveryDeviceList(t *testing.T) {
	covered := map[string]bool{
		"Emulator":     true, // host-side path, not guest ABI
		"Disks":        true,
		"Controllers":  true,
		"Leases":       true,
		"Filesystems":  true,
		"Interfaces":   true,
		"Smartcards":   true,
		"Serials":      true,
		"Parallels":    true,
		"Channels":     true,
		"Consoles":     true,
		"Inputs":       true,
		"Graphics":     true,
		"Sounds":       true,
		"Videos":       true,
		"HostDevs":     true,
		"RedirDevs":    true,
		"RedirFilters": true,
		"Hubs":         true,
		"Watchdogs":    true,
		"MemBalloons":  true,
		"RNGs":         true,
	}
	typ := reflect.TypeOf(Devices{})
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		if strings.HasPrefix(name, "XML") {
			continue
		}
		assert.True(t, covered[name], "device list %s has no ABI comparison", name)
	}
}
