package domain

import (
	"fmt"

	"github.com/samber/lo"
)

// checkEnum validates a parsed attribute against its recognized value set.
// Unknown strings are a hard parse error, never silently ignored.
func checkEnum[T ~string](what string, v T, valid []T) error {
	if v == "" {
		return nil
	}
	if !lo.Contains(valid, v) {
		return fmt.Errorf("%w: unsupported %s %q", ErrInvalidValue, what, string(v))
	}
	return nil
}

// requireEnum is checkEnum for attributes that must be present.
func requireEnum[T ~string](what string, v T, valid []T) error {
	if v == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, what)
	}
	return checkEnum(what, v, valid)
}

type VirtType string

const (
	VirtQEMU VirtType = "qemu"
	VirtKVM  VirtType = "kvm"
	VirtXen  VirtType = "xen"
	VirtLXC  VirtType = "lxc"
	VirtTest VirtType = "test"
)

var virtTypes = []VirtType{VirtQEMU, VirtKVM, VirtXen, VirtLXC, VirtTest}

type OSTypeID string

const (
	OSTypeHVM   OSTypeID = "hvm"
	OSTypeLinux OSTypeID = "linux"
	OSTypeExe   OSTypeID = "exe"
	OSTypeXen   OSTypeID = "xen"
)

var osTypeIDs = []OSTypeID{OSTypeHVM, OSTypeLinux, OSTypeExe, OSTypeXen}

type DiskType string

const (
	DiskTypeFile    DiskType = "file"
	DiskTypeBlock   DiskType = "block"
	DiskTypeDir     DiskType = "dir"
	DiskTypeNetwork DiskType = "network"
	DiskTypeVolume  DiskType = "volume"
)

var diskTypes = []DiskType{DiskTypeFile, DiskTypeBlock, DiskTypeDir, DiskTypeNetwork, DiskTypeVolume}

type DiskDevice string

const (
	DiskDeviceDisk   DiskDevice = "disk"
	DiskDeviceCDROM  DiskDevice = "cdrom"
	DiskDeviceFloppy DiskDevice = "floppy"
	DiskDeviceLUN    DiskDevice = "lun"
)

var diskDevices = []DiskDevice{DiskDeviceDisk, DiskDeviceCDROM, DiskDeviceFloppy, DiskDeviceLUN}

type DiskBus string

const (
	DiskBusIDE    DiskBus = "ide"
	DiskBusSCSI   DiskBus = "scsi"
	DiskBusSATA   DiskBus = "sata"
	DiskBusFDC    DiskBus = "fdc"
	DiskBusVirtio DiskBus = "virtio"
	DiskBusUSB    DiskBus = "usb"
	DiskBusXen    DiskBus = "xen"
	DiskBusSD     DiskBus = "sd"
)

var diskBuses = []DiskBus{DiskBusIDE, DiskBusSCSI, DiskBusSATA, DiskBusFDC, DiskBusVirtio, DiskBusUSB, DiskBusXen, DiskBusSD}

type CacheMode string

const (
	CacheNone         CacheMode = "none"
	CacheWritethrough CacheMode = "writethrough"
	CacheWriteback    CacheMode = "writeback"
	CacheDirectsync   CacheMode = "directsync"
	CacheUnsafe       CacheMode = "unsafe"
	CacheDefault      CacheMode = "default"
)

var cacheModes = []CacheMode{CacheNone, CacheWritethrough, CacheWriteback, CacheDirectsync, CacheUnsafe, CacheDefault}

type IOMode string

const (
	IOThreads IOMode = "threads"
	IONative  IOMode = "native"
)

var ioModes = []IOMode{IOThreads, IONative}

type ErrorPolicy string

const (
	ErrorPolicyStop     ErrorPolicy = "stop"
	ErrorPolicyReport   ErrorPolicy = "report"
	ErrorPolicyIgnore   ErrorPolicy = "ignore"
	ErrorPolicyEnospace ErrorPolicy = "enospace"
)

var errorPolicies = []ErrorPolicy{ErrorPolicyStop, ErrorPolicyReport, ErrorPolicyIgnore, ErrorPolicyEnospace}

type StartupPolicy string

const (
	StartupMandatory StartupPolicy = "mandatory"
	StartupRequisite StartupPolicy = "requisite"
	StartupOptional  StartupPolicy = "optional"
)

var startupPolicies = []StartupPolicy{StartupMandatory, StartupRequisite, StartupOptional}

type ControllerType string

const (
	ControllerIDE          ControllerType = "ide"
	ControllerFDC          ControllerType = "fdc"
	ControllerSCSI         ControllerType = "scsi"
	ControllerSATA         ControllerType = "sata"
	ControllerUSB          ControllerType = "usb"
	ControllerCCID         ControllerType = "ccid"
	ControllerVirtioSerial ControllerType = "virtio-serial"
	ControllerPCI          ControllerType = "pci"
)

var controllerTypes = []ControllerType{ControllerIDE, ControllerFDC, ControllerSCSI, ControllerSATA,
	ControllerUSB, ControllerCCID, ControllerVirtioSerial, ControllerPCI}

type FSType string

const (
	FSTypeMount    FSType = "mount"
	FSTypeBlock    FSType = "block"
	FSTypeFile     FSType = "file"
	FSTypeTemplate FSType = "template"
)

var fsTypes = []FSType{FSTypeMount, FSTypeBlock, FSTypeFile, FSTypeTemplate}

type FSAccessMode string

const (
	FSAccessPassthrough FSAccessMode = "passthrough"
	FSAccessMapped      FSAccessMode = "mapped"
	FSAccessSquash      FSAccessMode = "squash"
)

var fsAccessModes = []FSAccessMode{FSAccessPassthrough, FSAccessMapped, FSAccessSquash}

type InterfaceType string

const (
	IfaceTypeNetwork  InterfaceType = "network"
	IfaceTypeBridge   InterfaceType = "bridge"
	IfaceTypeUser     InterfaceType = "user"
	IfaceTypeEthernet InterfaceType = "ethernet"
	IfaceTypeDirect   InterfaceType = "direct"
	IfaceTypeHostdev  InterfaceType = "hostdev"
	IfaceTypeMcast    InterfaceType = "mcast"
	IfaceTypeServer   InterfaceType = "server"
	IfaceTypeClient   InterfaceType = "client"
	IfaceTypeInternal InterfaceType = "internal"
)

var interfaceTypes = []InterfaceType{IfaceTypeNetwork, IfaceTypeBridge, IfaceTypeUser, IfaceTypeEthernet,
	IfaceTypeDirect, IfaceTypeHostdev, IfaceTypeMcast, IfaceTypeServer, IfaceTypeClient, IfaceTypeInternal}

type SmartcardMode string

const (
	SmartcardHost             SmartcardMode = "host"
	SmartcardHostCertificates SmartcardMode = "host-certificates"
	SmartcardPassthrough      SmartcardMode = "passthrough"
)

var smartcardModes = []SmartcardMode{SmartcardHost, SmartcardHostCertificates, SmartcardPassthrough}

type ConsoleTargetType string

const (
	ConsoleTargetSerial ConsoleTargetType = "serial"
	ConsoleTargetVirtio ConsoleTargetType = "virtio"
	ConsoleTargetXen    ConsoleTargetType = "xen"
	ConsoleTargetUML    ConsoleTargetType = "uml"
	ConsoleTargetSCLP   ConsoleTargetType = "sclp"
	ConsoleTargetLXC    ConsoleTargetType = "lxc"
)

var consoleTargetTypes = []ConsoleTargetType{ConsoleTargetSerial, ConsoleTargetVirtio, ConsoleTargetXen,
	ConsoleTargetUML, ConsoleTargetSCLP, ConsoleTargetLXC}

type ChannelTargetType string

const (
	ChannelTargetGuestfwd ChannelTargetType = "guestfwd"
	ChannelTargetVirtio   ChannelTargetType = "virtio"
)

var channelTargetTypes = []ChannelTargetType{ChannelTargetGuestfwd, ChannelTargetVirtio}

type InputType string

const (
	InputMouse    InputType = "mouse"
	InputTablet   InputType = "tablet"
	InputKeyboard InputType = "keyboard"
)

var inputTypes = []InputType{InputMouse, InputTablet, InputKeyboard}

type InputBus string

const (
	InputBusPS2 InputBus = "ps2"
	InputBusUSB InputBus = "usb"
	InputBusXen InputBus = "xen"
)

var inputBuses = []InputBus{InputBusPS2, InputBusUSB, InputBusXen}

type GraphicsType string

const (
	GraphicsVNC     GraphicsType = "vnc"
	GraphicsSPICE   GraphicsType = "spice"
	GraphicsSDL     GraphicsType = "sdl"
	GraphicsRDP     GraphicsType = "rdp"
	GraphicsDesktop GraphicsType = "desktop"
)

var graphicsTypes = []GraphicsType{GraphicsVNC, GraphicsSPICE, GraphicsSDL, GraphicsRDP, GraphicsDesktop}

type SoundModel string

const (
	SoundSB16  SoundModel = "sb16"
	SoundES137 SoundModel = "es1370"
	SoundPCSpk SoundModel = "pcspk"
	SoundAC97  SoundModel = "ac97"
	SoundICH6  SoundModel = "ich6"
	SoundICH9  SoundModel = "ich9"
	SoundUSB   SoundModel = "usb"
)

var soundModels = []SoundModel{SoundSB16, SoundES137, SoundPCSpk, SoundAC97, SoundICH6, SoundICH9, SoundUSB}

type VideoModelType string

const (
	VideoVGA    VideoModelType = "vga"
	VideoCirrus VideoModelType = "cirrus"
	VideoVMVGA  VideoModelType = "vmvga"
	VideoQXL    VideoModelType = "qxl"
	VideoXen    VideoModelType = "xen"
	VideoVirtio VideoModelType = "virtio"
)

var videoModelTypes = []VideoModelType{VideoVGA, VideoCirrus, VideoVMVGA, VideoQXL, VideoXen, VideoVirtio}

type WatchdogModel string

const (
	WatchdogI6300ESB WatchdogModel = "i6300esb"
	WatchdogIB700    WatchdogModel = "ib700"
	WatchdogDiag288  WatchdogModel = "diag288"
)

var watchdogModels = []WatchdogModel{WatchdogI6300ESB, WatchdogIB700, WatchdogDiag288}

type WatchdogAction string

const (
	WatchdogReset    WatchdogAction = "reset"
	WatchdogShutdown WatchdogAction = "shutdown"
	WatchdogPoweroff WatchdogAction = "poweroff"
	WatchdogPause    WatchdogAction = "pause"
	WatchdogDump     WatchdogAction = "dump"
	WatchdogNone     WatchdogAction = "none"
)

var watchdogActions = []WatchdogAction{WatchdogReset, WatchdogShutdown, WatchdogPoweroff, WatchdogPause, WatchdogDump, WatchdogNone}

type BalloonModel string

const (
	BalloonVirtio BalloonModel = "virtio"
	BalloonXen    BalloonModel = "xen"
	BalloonNone   BalloonModel = "none"
)

var balloonModels = []BalloonModel{BalloonVirtio, BalloonXen, BalloonNone}

type RNGModel string

const RNGVirtio RNGModel = "virtio"

var rngModels = []RNGModel{RNGVirtio}

type RNGBackendModel string

const (
	RNGBackendRandom RNGBackendModel = "random"
	RNGBackendEGD    RNGBackendModel = "egd"
)

var rngBackendModels = []RNGBackendModel{RNGBackendRandom, RNGBackendEGD}

type HubType string

const HubUSB HubType = "usb"

var hubTypes = []HubType{HubUSB}

type HostDevMode string

const (
	HostDevSubsystem  HostDevMode = "subsystem"
	HostDevCapability HostDevMode = "capabilities"
)

var hostDevModes = []HostDevMode{HostDevSubsystem, HostDevCapability}

type HostDevSubsysType string

const (
	HostDevSubsysUSB HostDevSubsysType = "usb"
	HostDevSubsysPCI HostDevSubsysType = "pci"
)

var hostDevSubsysTypes = []HostDevSubsysType{HostDevSubsysUSB, HostDevSubsysPCI}

type HostDevCapsType string

const (
	HostDevCapsStorage HostDevCapsType = "storage"
	HostDevCapsMisc    HostDevCapsType = "misc"
	HostDevCapsNet     HostDevCapsType = "net"
)

var hostDevCapsTypes = []HostDevCapsType{HostDevCapsStorage, HostDevCapsMisc, HostDevCapsNet}

type LifecycleAction string

const (
	LifecycleDestroy         LifecycleAction = "destroy"
	LifecycleRestart         LifecycleAction = "restart"
	LifecyclePreserve        LifecycleAction = "preserve"
	LifecycleRenameRestart   LifecycleAction = "rename-restart"
	LifecycleCoredumpDestroy LifecycleAction = "coredump-destroy"
	LifecycleCoredumpRestart LifecycleAction = "coredump-restart"
)

var lifecycleActions = []LifecycleAction{LifecycleDestroy, LifecycleRestart, LifecyclePreserve,
	LifecycleRenameRestart, LifecycleCoredumpDestroy, LifecycleCoredumpRestart}

type LockFailureAction string

const (
	LockFailurePoweroff LockFailureAction = "poweroff"
	LockFailureRestart  LockFailureAction = "restart"
	LockFailurePause    LockFailureAction = "pause"
	LockFailureIgnore   LockFailureAction = "ignore"
)

var lockFailureActions = []LockFailureAction{LockFailurePoweroff, LockFailureRestart, LockFailurePause, LockFailureIgnore}

type ClockOffset string

const (
	ClockUTC       ClockOffset = "utc"
	ClockLocaltime ClockOffset = "localtime"
	ClockVariable  ClockOffset = "variable"
	ClockTimezone  ClockOffset = "timezone"
)

var clockOffsets = []ClockOffset{ClockUTC, ClockLocaltime, ClockVariable, ClockTimezone}

type TimerName string

const (
	TimerPlatform TimerName = "platform"
	TimerPIT      TimerName = "pit"
	TimerRTC      TimerName = "rtc"
	TimerHPET     TimerName = "hpet"
	TimerTSC      TimerName = "tsc"
	TimerKVMClock TimerName = "kvmclock"
)

var timerNames = []TimerName{TimerPlatform, TimerPIT, TimerRTC, TimerHPET, TimerTSC, TimerKVMClock}

type TimerTickPolicy string

const (
	TickDelay      TimerTickPolicy = "delay"
	TickCatchup    TimerTickPolicy = "catchup"
	TickMerge      TimerTickPolicy = "merge"
	TickDiscard    TimerTickPolicy = "discard"
	TickNone       TimerTickPolicy = "none"
	TickInjectRate TimerTickPolicy = "limit"
)

var timerTickPolicies = []TimerTickPolicy{TickDelay, TickCatchup, TickMerge, TickDiscard, TickNone, TickInjectRate}

type SecLabelType string

const (
	SecLabelDynamic SecLabelType = "dynamic"
	SecLabelStatic  SecLabelType = "static"
	SecLabelNone    SecLabelType = "none"
)

var secLabelTypes = []SecLabelType{SecLabelDynamic, SecLabelStatic, SecLabelNone}

type SMBiosMode string

const (
	SMBiosEmulate SMBiosMode = "emulate"
	SMBiosHost    SMBiosMode = "host"
	SMBiosSysinfo SMBiosMode = "sysinfo"
)

var smbiosModes = []SMBiosMode{SMBiosEmulate, SMBiosHost, SMBiosSysinfo}

type BootDev string

const (
	BootDevFD      BootDev = "fd"
	BootDevHD      BootDev = "hd"
	BootDevCDROM   BootDev = "cdrom"
	BootDevNetwork BootDev = "network"
)

var bootDevs = []BootDev{BootDevFD, BootDevHD, BootDevCDROM, BootDevNetwork}

type VCPUPlacement string

const (
	PlacementStatic VCPUPlacement = "static"
	PlacementAuto   VCPUPlacement = "auto"
)

var vcpuPlacements = []VCPUPlacement{PlacementStatic, PlacementAuto}

type NUMAMode string

const (
	NUMAStrict     NUMAMode = "strict"
	NUMAPreferred  NUMAMode = "preferred"
	NUMAInterleave NUMAMode = "interleave"
)

var numaModes = []NUMAMode{NUMAStrict, NUMAPreferred, NUMAInterleave}
