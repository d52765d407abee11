package constants

// Template names registered in the templator engine.
const (
	TemplateNginxSite              = "nginx-site"
	TemplateLibvirtDomain          = "libvirt-domain"
	TemplateCloudInitUserData      = "cloudinit-user-data"
	TemplateCloudInitMetaData      = "cloudinit-meta-data"
	TemplateCloudInitNetworkConfig = "cloudinit-network-config"
)
