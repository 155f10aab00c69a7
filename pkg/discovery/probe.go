package discovery

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// versionProbeTimeout bounds how long a single --version call may hang
const versionProbeTimeout = 5 * time.Second

// knownCLITools maps common executables to their capability sets.
// Unknown names probe as plain process tools.
var knownCLITools = map[string][]Capability{
	"git":    {CapabilityFileRead, CapabilityFileWrite, CapabilityNetwork, CapabilityProcess},
	"npm":    {CapabilityFileRead, CapabilityFileWrite, CapabilityNetwork, CapabilityProcess},
	"pip":    {CapabilityFileRead, CapabilityFileWrite, CapabilityNetwork, CapabilityProcess},
	"docker": {CapabilityNetwork, CapabilityProcess},
	"curl":   {CapabilityNetwork},
	"psql":   {CapabilityDatabase, CapabilityNetwork},
}

// ProbeCLI looks up each named executable on PATH and registers the
// ones that exist. Already-registered tools are left untouched.
func (c *Catalog) ProbeCLI(ctx context.Context, names ...string) int {
	registered := 0

	for _, name := range names {
		if _, exists := c.Get(name); exists {
			continue
		}

		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		meta := ToolMetadata{
			Name:         name,
			Category:     CategoryCLI,
			Capabilities: capabilitiesFor(name),
			Version:      probeVersion(ctx, path),
		}
		if err := c.Register(meta); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("CLI probe registration failed")
			continue
		}
		registered++
	}

	log.Info().Int("registered", registered).Int("probed", len(names)).Msg("CLI probe finished")

	return registered
}

func capabilitiesFor(name string) []Capability {
	if caps, ok := knownCLITools[name]; ok {
		out := make([]Capability, len(caps))
		copy(out, caps)
		return out
	}
	return []Capability{CapabilityProcess}
}

// probeVersion captures the first line of `<tool> --version`. Tools
// that do not support the flag yield an empty version.
func probeVersion(ctx context.Context, path string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, path, "--version")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	line := strings.SplitN(strings.TrimSpace(string(output)), "\n", 2)[0]
	return strings.TrimSpace(line)
}
