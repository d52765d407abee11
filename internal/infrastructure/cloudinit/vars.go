package cloudinit

import "github.com/ironbell/pressgang/internal/api"

type UserDataTemplateVars struct {
	Hostname string
	Users    []api.UserConfig
	Packages []string
	Runcmds  []string
}

type MetaDataTemplateVars struct {
	InstanceID string
	Hostname   string
}

type NetworkConfigTemplateVars struct {
	Hostname string
}
