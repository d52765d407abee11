package api

// StackSpec is the wire form of a site stack definition: one database, one
// application container and one TLS proxy on a shared bridge network.
type StackSpec struct {
	Domain   string       `json:"domain"`
	SiteDir  string       `json:"site_dir,omitempty"`
	Network  string       `json:"network,omitempty"`
	Volumes  VolumeSpec   `json:"volumes,omitempty"`
	Database DatabaseSpec `json:"database,omitempty"`
	App      AppSpec      `json:"app,omitempty"`
	Proxy    ProxySpec    `json:"proxy,omitempty"`
}

// VolumeSpec names the persistent volumes of a stack.
type VolumeSpec struct {
	Database string `json:"database,omitempty"`
	Site     string `json:"site,omitempty"`
}

// DatabaseSpec configures the database container.
type DatabaseSpec struct {
	Name         string `json:"name,omitempty"`
	Image        string `json:"image,omitempty"`
	Database     string `json:"database,omitempty"`
	User         string `json:"user,omitempty"`
	RootPassword string `json:"root_password,omitempty"`
	Password     string `json:"password,omitempty"`
	ReadyMarker  string `json:"ready_marker,omitempty"`
}

// AppSpec configures the application container.
type AppSpec struct {
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// ProxySpec configures the TLS-terminating proxy container.
type ProxySpec struct {
	Name      string `json:"name,omitempty"`
	Image     string `json:"image,omitempty"`
	HTTPPort  int    `json:"http_port,omitempty"`
	HTTPSPort int    `json:"https_port,omitempty"`
}

// UpStackRequest asks for a stack to be brought up.
type UpStackRequest struct {
	Stack StackSpec `json:"stack"`
}

// DownStackRequest asks for a stack to be torn down. RemoveData additionally
// removes the network and volumes.
type DownStackRequest struct {
	Stack      StackSpec `json:"stack"`
	RemoveData bool      `json:"remove_data"`
}

// StackStatusRequest asks for the state of a stack's containers.
type StackStatusRequest struct {
	Stack StackSpec `json:"stack"`
}

// ContainerStatus reports one container of a stack.
type ContainerStatus struct {
	Name    string   `json:"name"`
	Image   string   `json:"image,omitempty"`
	State   string   `json:"state"`
	Running bool     `json:"running"`
	Ports   []string `json:"ports,omitempty"`
}

// StackStatusResponse lists the stack's containers in startup order.
type StackStatusResponse struct {
	Containers []ContainerStatus `json:"containers"`
}

// VerifyStackRequest asks for the acceptance checks to run against a stack.
type VerifyStackRequest struct {
	Stack StackSpec `json:"stack"`
}

// CheckResult reports one acceptance check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// VerifyStackResponse aggregates the acceptance checks.
type VerifyStackResponse struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
}
