package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "0f0b7f13-571b-4a4a-8a3b-3e1e8f1a2b3c"

func testDomainXML(devices string) []byte {
	return []byte(fmt.Sprintf(`<domain type='kvm'>
  <name>demo</name>
  <uuid>%s</uuid>
  <memory unit='MiB'>512</memory>
  <vcpu>2</vcpu>
  <os>
    <type arch='x86_64' machine='pc'>hvm</type>
  </os>
  <devices>
%s
  </devices>
</domain>`, testUUID, devices))
}

const testDiskXML = `    <disk type='file' device='disk'>
      <driver name='qemu' type='qcow2'/>
      <source file='/var/lib/images/demo.qcow2'/>
      <target dev='sda' bus='scsi'/>
    </disk>`

func TestParse_Basic(t *testing.T) {
	def, err := Parse(testDomainXML(testDiskXML), nil)
	require.NoError(t, err)

	assert.Equal(t, VirtKVM, def.Type)
	assert.Equal(t, "demo", def.Name)
	assert.Equal(t, testUUID, def.UUID)
	assert.Equal(t, OSTypeHVM, def.OS.Type.ID)
	assert.Equal(t, uint(2), def.MaxVCPUs())

	require.Len(t, def.Devices.Disks, 1)
	disk := def.Devices.Disks[0]
	assert.Equal(t, DiskTypeFile, disk.Type)
	assert.Equal(t, DiskBusSCSI, disk.Target.Bus)
}

func TestParse_MemoryNormalizedToKiB(t *testing.T) {
	def, err := Parse(testDomainXML(testDiskXML), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(512*1024), def.Memory.Value)
	assert.Equal(t, "KiB", def.Memory.Unit)
	// currentMemory defaults to the maximum
	require.NotNil(t, def.CurrentMemory)
	assert.Equal(t, def.Memory.Value, def.CurrentMemory.Value)
}

func TestParse_CurrentMemoryAboveMaximum(t *testing.T) {
	xml := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory unit='KiB'>1024</memory>
  <currentMemory unit='KiB'>2048</currentMemory>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
	_, err := Parse(xml, nil)
	require.ErrorIs(t, err, ErrConflict)
}

func TestParse_RejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name    string
		doc     []byte
		devices string
	}{
		{name: "domain type", doc: []byte(`<domain type='vmware'><name>d</name><memory>1</memory><os><type>hvm</type></os><devices/></domain>`)},
		{name: "disk bus", devices: `    <disk type='file'><source file='/i.img'/><target dev='sda' bus='floppy'/></disk>`},
		{name: "disk cache", devices: `    <disk type='file'><driver cache='lazy'/><source file='/i.img'/><target dev='sda' bus='virtio'/></disk>`},
		{name: "sound model", devices: `    <sound model='hda'/>`},
		{name: "watchdog model", devices: `    <watchdog model='itco'/>`},
		{name: "input type", devices: `    <input type='trackball' bus='usb'/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			if doc == nil {
				doc = testDomainXML(tt.devices)
			}
			_, err := Parse(doc, nil)
			require.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestParse_LegacyAioDriverType(t *testing.T) {
	devices := `    <disk type='file'>
      <driver name='qemu' type='aio'/>
      <source file='/i.img'/>
      <target dev='vda' bus='virtio'/>
    </disk>`
	def, err := Parse(testDomainXML(devices), nil)
	require.NoError(t, err)
	assert.Equal(t, "raw", def.Devices.Disks[0].Driver.Type)
}

func TestParse_DuplicateDiskTarget(t *testing.T) {
	devices := testDiskXML + `
    <disk type='file' device='disk'>
      <source file='/other.img'/>
      <target dev='sda' bus='scsi'/>
    </disk>`
	_, err := Parse(testDomainXML(devices), nil)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestParse_CDROMWithoutSource(t *testing.T) {
	devices := `    <disk type='file' device='cdrom'>
      <target dev='hdc' bus='ide'/>
    </disk>`
	def, err := Parse(testDomainXML(devices), nil)
	require.NoError(t, err)
	assert.True(t, def.Devices.Disks[0].Removable())
}

func TestParse_DiskWithoutSource(t *testing.T) {
	devices := `    <disk type='file' device='disk'>
      <target dev='vda' bus='virtio'/>
    </disk>`
	_, err := Parse(testDomainXML(devices), nil)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestParse_BootOrdering(t *testing.T) {
	diskWithBoot := func(dev string, order int) string {
		return fmt.Sprintf(`    <disk type='file'>
      <source file='/%s.img'/>
      <target dev='%s' bus='virtio'/>
      <boot order='%d'/>
    </disk>`, dev, dev, order)
	}

	t.Run("contiguous orders accepted", func(t *testing.T) {
		devices := diskWithBoot("vda", 1) + "\n" + diskWithBoot("vdb", 2)
		_, err := Parse(testDomainXML(devices), nil)
		require.NoError(t, err)
	})

	t.Run("duplicate order rejected", func(t *testing.T) {
		devices := diskWithBoot("vda", 1) + "\n" + diskWithBoot("vdb", 1)
		_, err := Parse(testDomainXML(devices), nil)
		require.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("gap rejected", func(t *testing.T) {
		_, err := Parse(testDomainXML(diskWithBoot("vda", 2)), nil)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("mixing with os boot rejected", func(t *testing.T) {
		doc := []byte(fmt.Sprintf(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type><boot dev='hd'/></os>
  <devices>
%s
  </devices>
</domain>`, diskWithBoot("vda", 1)))
		_, err := Parse(doc, nil)
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestParse_DefaultBootDevice(t *testing.T) {
	t.Run("synthesized when nothing configured", func(t *testing.T) {
		def, err := Parse(testDomainXML(testDiskXML), nil)
		require.NoError(t, err)
		require.Len(t, def.OS.BootDevs, 1)
		assert.Equal(t, BootDevHD, def.OS.BootDevs[0].Dev)
	})

	t.Run("explicit boot devices kept", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type><boot dev='network'/><boot dev='hd'/></os>
  <devices/>
</domain>`)
		def, err := Parse(doc, nil)
		require.NoError(t, err)
		require.Len(t, def.OS.BootDevs, 2)
		assert.Equal(t, BootDevNetwork, def.OS.BootDevs[0].Dev)
	})

	t.Run("per-device orders suppress the default", func(t *testing.T) {
		devices := `    <disk type='file'>
      <source file='/a.img'/>
      <target dev='vda' bus='virtio'/>
      <boot order='1'/>
    </disk>`
		def, err := Parse(testDomainXML(devices), nil)
		require.NoError(t, err)
		assert.Empty(t, def.OS.BootDevs)
	})
}

func TestParse_AddressKindMismatch(t *testing.T) {
	tests := []struct {
		name    string
		devices string
	}{
		{
			name: "drive address on controller",
			devices: `    <controller type='scsi' index='0'>
      <address type='drive' controller='0' bus='0' unit='0'/>
    </controller>`,
		},
		{
			name: "pci address on virtio console",
			devices: `    <console type='pty'>
      <target type='virtio' port='0'/>
      <address type='pci' domain='0x0000' bus='0x00' slot='0x04' function='0x0'/>
    </console>`,
		},
		{
			name: "usb address on smartcard",
			devices: `    <smartcard mode='host'>
      <address type='usb' bus='0' port='1'/>
    </smartcard>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(testDomainXML(tt.devices), nil)
			require.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestParse_ConsoleCompat(t *testing.T) {
	t.Run("lone console becomes serial zero", func(t *testing.T) {
		devices := `    <console type='pty'>
      <target type='serial'/>
    </console>`
		def, err := Parse(testDomainXML(devices), nil)
		require.NoError(t, err)

		require.Len(t, def.Devices.Serials, 1)
		serial := def.Devices.Serials[0]
		require.NotNil(t, serial.Target)
		require.NotNil(t, serial.Target.Port)
		assert.Equal(t, uint(0), *serial.Target.Port)
		assert.Equal(t, ChardevPty, serial.Source.Type())

		console := def.Devices.Consoles[0]
		require.NotNil(t, console.Target)
		assert.Equal(t, ConsoleTargetSerial, console.Target.Type)
	})

	t.Run("console matching serial zero kept", func(t *testing.T) {
		devices := `    <serial type='pty'>
      <target port='0'/>
    </serial>
    <console type='pty'>
      <target type='serial'/>
    </console>`
		def, err := Parse(testDomainXML(devices), nil)
		require.NoError(t, err)
		assert.Len(t, def.Devices.Serials, 1)
	})

	t.Run("console conflicting with serial zero rejected", func(t *testing.T) {
		devices := `    <serial type='tcp'>
      <source mode='bind' host='127.0.0.1' service='4555'/>
      <target port='0'/>
    </serial>
    <console type='pty'>
      <target type='serial'/>
    </console>`
		_, err := Parse(testDomainXML(devices), nil)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("virtio console untouched", func(t *testing.T) {
		devices := `    <console type='pty'>
      <target type='virtio'/>
    </console>`
		def, err := Parse(testDomainXML(devices), nil)
		require.NoError(t, err)
		assert.Empty(t, def.Devices.Serials)
	})
}

func TestParse_ImplicitMouse(t *testing.T) {
	devices := `    <graphics type='vnc' autoport='yes'/>`
	def, err := Parse(testDomainXML(devices), nil)
	require.NoError(t, err)

	require.Len(t, def.Devices.Inputs, 1)
	assert.Equal(t, InputMouse, def.Devices.Inputs[0].Type)
	assert.Equal(t, InputBusPS2, def.Devices.Inputs[0].Bus)
}

func TestParse_DuplicateSingletonDevices(t *testing.T) {
	devices := `    <watchdog model='i6300esb'/>
    <watchdog model='ib700'/>`
	_, err := Parse(testDomainXML(devices), nil)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestParse_VCPUPins(t *testing.T) {
	t.Run("pin beyond maximum rejected", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <vcpu>2</vcpu>
  <cputune>
    <vcpupin vcpu='5' cpuset='0-1'/>
  </cputune>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
		_, err := Parse(doc, nil)
		require.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("implicit pins from cpuset", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <vcpu cpuset='0-3'>4</vcpu>
  <cputune>
    <vcpupin vcpu='0' cpuset='0'/>
  </cputune>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
		def, err := Parse(doc, nil)
		require.NoError(t, err)
		require.Len(t, def.CPUTune.VCPUPins, 4)
		assert.Equal(t, "0", def.CPUTune.VCPUPins[0].CPUSet)
		assert.Equal(t, "0-3", def.CPUTune.VCPUPins[1].CPUSet)
	})

	t.Run("pins beyond current kept", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <vcpu current='1'>2</vcpu>
  <cputune>
    <vcpupin vcpu='1' cpuset='1'/>
  </cputune>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
		def, err := Parse(doc, nil)
		require.NoError(t, err)
		require.Len(t, def.CPUTune.VCPUPins, 1)
		assert.Equal(t, uint(1), def.CPUTune.VCPUPins[0].VCPU)
	})
}

func TestParse_UUIDHandling(t *testing.T) {
	t.Run("generated when absent", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
		def, err := Parse(doc, nil)
		require.NoError(t, err)
		assert.Len(t, def.UUID, 36)
	})

	t.Run("sysinfo uuid must match", func(t *testing.T) {
		doc := []byte(fmt.Sprintf(`<domain type='kvm'>
  <name>demo</name>
  <uuid>%s</uuid>
  <memory>1024</memory>
  <sysinfo type='smbios'>
    <system>
      <entry name='uuid'>11111111-2222-3333-4444-555555555555</entry>
    </system>
  </sysinfo>
  <os><type>hvm</type></os>
  <devices/>
</domain>`, testUUID))
		_, err := Parse(doc, nil)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("sysinfo uuid adopted when domain has none", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <sysinfo type='smbios'>
    <system>
      <entry name='uuid'>11111111-2222-3333-4444-555555555555</entry>
    </system>
  </sysinfo>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
		def, err := Parse(doc, nil)
		require.NoError(t, err)
		assert.Equal(t, "11111111-2222-3333-4444-555555555555", def.UUID)
	})
}

func TestParse_SecLabelOverrides(t *testing.T) {
	t.Run("override under relabelling model accepted", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices>
    <disk type='file'>
      <source file='/i.img'>
        <seclabel model='selinux' relabel='no'/>
      </source>
      <target dev='vda' bus='virtio'/>
    </disk>
  </devices>
  <seclabel type='dynamic' model='selinux'/>
</domain>`)
		_, err := Parse(doc, nil)
		require.NoError(t, err)
	})

	t.Run("override under non-relabelling model rejected", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices>
    <disk type='file'>
      <source file='/i.img'>
        <seclabel model='selinux' relabel='no'/>
      </source>
      <target dev='vda' bus='virtio'/>
    </disk>
  </devices>
  <seclabel type='dynamic' model='selinux' relabel='no'/>
</domain>`)
		_, err := Parse(doc, nil)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("override referencing unknown model rejected", func(t *testing.T) {
		doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <os><type>hvm</type></os>
  <devices>
    <serial type='dev'>
      <source path='/dev/ttyS0'>
        <seclabel model='dac' relabel='no'/>
      </source>
      <target port='0'/>
    </serial>
  </devices>
  <seclabel type='dynamic' model='selinux'/>
</domain>`)
		_, err := Parse(doc, nil)
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestParse_HostdevInterfaceOwnership(t *testing.T) {
	devices := `    <interface type='hostdev' managed='yes'>
      <mac address='52:54:00:6d:90:02'/>
      <source>
        <address type='pci' domain='0x0000' bus='0x06' slot='0x02' function='0x0'/>
      </source>
    </interface>`
	def, err := Parse(testDomainXML(devices), nil)
	require.NoError(t, err)

	// the payload is owned by the interface, not duplicated at top level
	assert.Empty(t, def.Devices.HostDevs)
	all := def.AllHostDevs()
	require.Len(t, all, 1)
	assert.Equal(t, HostDevSubsysPCI, all[0].SubType)
	require.NotNil(t, all[0].Source.PCIAddress.Slot)
	assert.Equal(t, uint(0x02), *all[0].Source.PCIAddress.Slot)
}

func TestParse_GuestfwdChannelNeedsEndpoint(t *testing.T) {
	devices := `    <channel type='pipe'>
      <source path='/tmp/guestfwd'/>
      <target type='guestfwd'/>
    </channel>`
	_, err := Parse(testDomainXML(devices), nil)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestParse_TimerConstraints(t *testing.T) {
	doc := []byte(`<domain type='kvm'>
  <name>demo</name>
  <memory>1024</memory>
  <clock offset='utc'>
    <timer name='rtc' frequency='1000'/>
  </clock>
  <os><type>hvm</type></os>
  <devices/>
</domain>`)
	_, err := Parse(doc, nil)
	require.ErrorIs(t, err, ErrConflict)
}

func TestParse_UnknownAddressType(t *testing.T) {
	devices := `    <disk type='file'>
      <source file='/i.img'/>
      <target dev='vda' bus='virtio'/>
      <address type='isa' iobase='0x505'/>
    </disk>`
	_, err := Parse(testDomainXML(devices), nil)
	require.ErrorIs(t, err, ErrInvalidValue)
}
