package devctl

// ResetFlag selects the behavior of the reset ioctl. One enumeration is
// shared by every protocol variant; older drivers only honor the first
// three values.
type ResetFlag uint32

const (
	// RestoreState re-applies saved device state after a reset.
	RestoreState ResetFlag = 0
	// ResetPCIeLink performs a secondary bus (link) reset.
	ResetPCIeLink ResetFlag = 1
	// ConfigWrite triggers the config-space reset used by older boards.
	ConfigWrite ResetFlag = 2
	// UserReset requests a user-initiated reset.
	UserReset ResetFlag = 3
	// AsicReset resets the compute die.
	AsicReset ResetFlag = 4
	// AsicDMCReset resets the compute die and the management co-processor.
	AsicDMCReset ResetFlag = 5
	// PostReset verifies device health after re-enumeration.
	PostReset ResetFlag = 6
)

func (f ResetFlag) String() string {
	switch f {
	case RestoreState:
		return "RESTORE_STATE"
	case ResetPCIeLink:
		return "RESET_PCIE_LINK"
	case ConfigWrite:
		return "CONFIG_WRITE"
	case UserReset:
		return "USER_RESET"
	case AsicReset:
		return "ASIC_RESET"
	case AsicDMCReset:
		return "ASIC_DMC_RESET"
	case PostReset:
		return "POST_RESET"
	default:
		return "UNKNOWN"
	}
}
