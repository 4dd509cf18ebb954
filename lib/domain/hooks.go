package domain

// ParseFlags tune what Parse accepts and keeps.
type ParseFlags uint

const (
	// ParseInactive discards runtime-only state (hypervisor id, pty paths,
	// auto-allocated ports) so the result describes the persistent config.
	ParseInactive ParseFlags = 1 << iota
)

// DriverHooks lets a hypervisor driver adjust definitions after the generic
// parse completes: filling driver defaults, claiming namespace payloads,
// rejecting combinations it cannot run. Both hooks run before address
// allocation so driver-assigned addresses win.
type DriverHooks interface {
	// DevicePostParse is called once per device; dev is a pointer to one of
	// the device structs.
	DevicePostParse(def *Definition, dev any) error

	// DomainPostParse is called once after every device hook succeeded.
	DomainPostParse(def *Definition) error
}

// ParseOptions carries the knobs for a single Parse call.
type ParseOptions struct {
	Flags ParseFlags

	// WideSCSIBus selects 16-unit SCSI controllers when deriving drive
	// addresses; unit 7 stays reserved for the adapter.
	WideSCSIBus bool

	Hooks DriverHooks
}

func (o *ParseOptions) inactive() bool {
	return o != nil && o.Flags&ParseInactive != 0
}

func (o *ParseOptions) wideSCSI() bool {
	return o != nil && o.WideSCSIBus
}

func (o *ParseOptions) hooks() DriverHooks {
	if o == nil {
		return nil
	}
	return o.Hooks
}
