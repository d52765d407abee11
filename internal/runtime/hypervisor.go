package runtime

import (
	"github.com/ironbell/pressgang/pkg/executor"
	"libvirt.org/go/libvirt"
)

// HypervisorContext holds the live dependencies machine operations need: an
// open libvirt connection and an executor for the helper binaries.
type HypervisorContext struct {
	URI      string            `json:"-"`
	Conn     *libvirt.Connect  `json:"-"`
	Executor executor.Executor `json:"-"`
}
