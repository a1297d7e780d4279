package elasticsearch

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// fallbackVersion is assumed when the cluster version cannot be detected.
// It is the oldest possible version, which forces legacy indexing mode.
const fallbackVersion = "0.0.0"

// typelessMajor is the first major version that dropped mapping types.
const typelessMajor = 7

// Capabilities describes the behavior of the connected cluster that the
// driver must adapt to. It is an explicit value so tests and callers can
// inject it instead of relying on hidden global state; when not injected the
// engine resolves it once, lazily, on first use.
type Capabilities struct {
	// Version is the cluster version string, e.g. "7.10.0".
	Version string

	// Legacy is true for clusters predating mapping-type removal. In legacy
	// mode every model shares one fixed index and the model's SearchableAs
	// value becomes the type discriminator inside it.
	Legacy bool
}

// DetectCapabilities queries the cluster info endpoint and derives the
// indexing mode. Detection failures are recovered locally: the result
// degrades to the fallback version (legacy mode) and the error is never
// surfaced.
func DetectCapabilities(ctx context.Context, client *elasticsearch.Client) Capabilities {
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return CapabilitiesFor(fallbackVersion)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return CapabilitiesFor(fallbackVersion)
	}

	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil || info.Version.Number == "" {
		return CapabilitiesFor(fallbackVersion)
	}

	return CapabilitiesFor(info.Version.Number)
}

// CapabilitiesFor derives capabilities from a version string.
func CapabilitiesFor(version string) Capabilities {
	return Capabilities{
		Version: version,
		Legacy:  majorVersion(version) < typelessMajor,
	}
}

// majorVersion parses the leading major component of a version string.
// Unparseable versions count as 0 (oldest).
func majorVersion(version string) int {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return major
}
