package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveTestDef(t *testing.T) *Definition {
	t.Helper()
	doc := []byte(`<domain type='kvm' id='7'>
  <name>demo</name>
  <uuid>0f0b7f13-571b-4a4a-8a3b-3e1e8f1a2b3c</uuid>
  <memory unit='KiB'>524288</memory>
  <os><type arch='x86_64' machine='pc'>hvm</type></os>
  <devices>
    <disk type='file'>
      <source file='/var/lib/images/demo.qcow2'/>
      <target dev='vda' bus='virtio'/>
    </disk>
    <serial type='pty'>
      <source path='/dev/pts/3'/>
      <target port='0'/>
    </serial>
    <interface type='network'>
      <mac address='52:54:00:aa:bb:cc'/>
      <source network='default'/>
      <target dev='vnet0'/>
    </interface>
    <graphics type='vnc' port='5901' autoport='yes' passwd='hunter2'/>
  </devices>
  <seclabel type='dynamic' model='selinux'>
    <label>system_u:system_r:svirt_t:s0:c1,c2</label>
  </seclabel>
</domain>`)
	def, err := Parse(doc, nil)
	require.NoError(t, err)
	return def
}

func TestFormat_SecretsDroppedByDefault(t *testing.T) {
	def := liveTestDef(t)

	out, err := Format(def, 0)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")

	out, err = Format(def, FormatSecure)
	require.NoError(t, err)
	assert.Contains(t, string(out), "hunter2")
}

func TestFormat_InactiveScrubsRuntimeState(t *testing.T) {
	def := liveTestDef(t)

	out, err := Format(def, FormatInactive)
	require.NoError(t, err)
	text := string(out)

	assert.NotContains(t, text, `id="7"`)
	assert.NotContains(t, text, "/dev/pts/3")
	assert.NotContains(t, text, "vnet0")
	assert.NotContains(t, text, "5901")
	assert.NotContains(t, text, "svirt_t")
	// the backend type survives, only the runtime path goes
	assert.Contains(t, text, `type="pty"`)
}

func TestFormat_DoesNotMutateInput(t *testing.T) {
	def := liveTestDef(t)
	_, err := Format(def, FormatInactive)
	require.NoError(t, err)

	// runtime state is still there on the original
	assert.Equal(t, "/dev/pts/3", def.Devices.Serials[0].Source.Pty.Path)
	require.NotNil(t, def.ID)
	assert.Equal(t, 7, *def.ID)
}

func TestFormat_RoundTrip(t *testing.T) {
	def := liveTestDef(t)

	out, err := Format(def, FormatSecure|FormatInactive)
	require.NoError(t, err)

	again, err := Parse(out, nil)
	require.NoError(t, err)

	assert.Equal(t, def.Name, again.Name)
	assert.Equal(t, def.UUID, again.UUID)
	assert.Equal(t, def.Memory.Value, again.Memory.Value)
	require.Len(t, again.Devices.Disks, 1)
	assert.Equal(t, "vda", again.Devices.Disks[0].Target.Dev)
	require.Len(t, again.Devices.Serials, 1)
	assert.Equal(t, ChardevPty, again.Devices.Serials[0].Source.Type())

	// formatting the reparse gives identical output
	out2, err := Format(again, FormatSecure|FormatInactive)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestFormat_MigratableDropsID(t *testing.T) {
	def := liveTestDef(t)
	out, err := Format(def, FormatMigratable)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(out), `id="7"`))
}

func TestFormat_InternalStatusKeepsEverything(t *testing.T) {
	def := liveTestDef(t)
	out, err := Format(def, FormatInternalStatus)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "hunter2")
	assert.Contains(t, text, "/dev/pts/3")
	assert.Contains(t, text, `id="7"`)
}
