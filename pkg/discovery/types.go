package discovery

// Category classifies how a tool is invoked
type Category string

const (
	CategoryCLI           Category = "cli"
	CategoryPackage       Category = "package"
	CategoryAPI           Category = "api"
	CategoryFileOperation Category = "file_operation"
	CategorySystem        Category = "system"
)

// Capability names an action class a tool can perform. Capabilities
// are what the recommendation engine matches task requirements against.
type Capability string

const (
	CapabilityFileRead  Capability = "file_read"
	CapabilityFileWrite Capability = "file_write"
	CapabilityNetwork   Capability = "network"
	CapabilityProcess   Capability = "process"
	CapabilityDatabase  Capability = "database"
	CapabilityAPICall   Capability = "api_call"
)

// ToolMetadata describes a discovered tool
type ToolMetadata struct {
	Name                string       `json:"name"`
	Category            Category     `json:"category"`
	Capabilities        []Capability `json:"capabilities"`
	Description         string       `json:"description,omitempty"`
	RequiresCredentials bool         `json:"requires_credentials,omitempty"`
	Version             string       `json:"version,omitempty"`
}
