package ports

import "time"

// Collection groups the ports handed to the reset engine.
type Collection struct {
	Control      ControlChannel
	Topology     BusTopology
	Firmware     FirmwareChannel
	ControlStore ControlStoreClient
	Host         HostInfo
	Clock        func() time.Time
	Sleep        func(time.Duration)
}
