package service

// StackParams contains transport-agnostic parameters for stack operations.
type StackParams struct {
	Domain     string
	SiteDir    string
	Network    string
	DBVolume   string
	SiteVolume string
	Database   DatabaseParams
	App        AppParams
	Proxy      ProxyParams
}

// DatabaseParams configures the database container. Empty passwords are
// filled from persisted or freshly generated credentials.
type DatabaseParams struct {
	Name         string
	Image        string
	Database     string
	User         string
	RootPassword string
	Password     string
	ReadyMarker  string
}

// AppParams configures the application container.
type AppParams struct {
	Name  string
	Image string
}

// ProxyParams configures the TLS proxy container.
type ProxyParams struct {
	Name      string
	Image     string
	HTTPPort  int
	HTTPSPort int
}

// ContainerState reports one container of a stack. State is "absent" when
// the container does not exist.
type ContainerState struct {
	Name    string
	Image   string
	State   string
	Running bool
	Ports   []string
}

// VerifyCheck reports a single acceptance check.
type VerifyCheck struct {
	Name   string
	Passed bool
	Detail string
}

// VerifyReport aggregates the acceptance checks of a stack.
type VerifyReport struct {
	Passed bool
	Checks []VerifyCheck
}

// CreateMachineParams contains transport-agnostic parameters for creating a
// development machine.
type CreateMachineParams struct {
	Name                   string
	VCPU                   int
	MemoryMB               int64
	DiskPath               string
	DiskSizeGB             int64
	BaseImagePath          string
	BridgeNetworkInterface string
	CloudInitISOPath       string
	Users                  []UserConfig
	Packages               []string
	Runcmds                []string
}

// UserConfig describes a cloud-init provisioned user account.
type UserConfig struct {
	Username          string
	Password          string
	SSHAuthorizedKeys []string
}

// DeleteMachineParams identifies a machine to destroy.
type DeleteMachineParams struct {
	Name string
}

// SSHParams describe how to reach a machine over SSH.
type SSHParams struct {
	Host    string
	Port    int
	User    string
	KeyPath string
}

// ProvisionMachineParams asks for the container engine install on a running
// machine.
type ProvisionMachineParams struct {
	Name string
	SSH  SSHParams
}

// MachineInfoParams identifies a machine to query.
type MachineInfoParams struct {
	Name string
}
