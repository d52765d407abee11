package api

// CreateMachineRequest contains the configuration for a development machine.
type CreateMachineRequest struct {
	Name                   string       `json:"name"`
	VCPU                   int          `json:"vcpu"`
	MemoryMB               int64        `json:"memory_mb"`
	DiskPath               string       `json:"disk_path"`
	DiskSizeGB             int64        `json:"disk_size_gb"`
	BaseImagePath          string       `json:"base_image_path"`
	BridgeNetworkInterface string       `json:"bridge_network_interface"`
	CloudInitISOPath       string       `json:"cloud_init_iso_path"`
	Users                  []UserConfig `json:"users,omitempty"`
	Packages               []string     `json:"packages,omitempty"`
	Runcmds                []string     `json:"runcmds,omitempty"`
}

// UserConfig describes a cloud-init provisioned user account.
type UserConfig struct {
	Username          string   `json:"username"`
	Password          string   `json:"password,omitempty"`
	SSHAuthorizedKeys []string `json:"ssh_authorized_keys,omitempty"`
}

// DeleteMachineRequest identifies a machine to destroy.
type DeleteMachineRequest struct {
	Name string `json:"name"`
}

// SSHAccess describes how to reach a machine over SSH.
type SSHAccess struct {
	Host    string `json:"host"`
	Port    int    `json:"port,omitempty"`
	User    string `json:"user"`
	KeyPath string `json:"key_path"`
}

// ProvisionMachineRequest asks for the container engine to be installed on a
// running machine over SSH.
type ProvisionMachineRequest struct {
	Name string    `json:"name"`
	SSH  SSHAccess `json:"ssh"`
}

// MachineInfoRequest identifies a machine to query.
type MachineInfoRequest struct {
	Name string `json:"name"`
}

// MachineInfo reports the hypervisor's view of a machine.
type MachineInfo struct {
	Name       string `json:"name"`
	UUID       string `json:"uuid"`
	State      string `json:"state"`
	VCPUCount  uint   `json:"vcpu_count"`
	MemoryMB   uint   `json:"memory_mb"`
	AutoStart  bool   `json:"autostart"`
	Persistent bool   `json:"persistent"`
}
