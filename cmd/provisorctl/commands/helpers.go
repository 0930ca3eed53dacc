package commands

import (
	"time"

	"github.com/brightloop/provisor/internal/output"
)

// newResultFromTools wraps a provider's tool names for display via the
// same Formatter used for call results.
func newResultFromTools(tools []string) *output.CallResult {
	return output.NewCallResult(map[string]any{"tools": tools})
}

func timeoutMSDuration() time.Duration {
	return time.Duration(timeoutMS) * time.Millisecond
}

// splitTarget splits "provider.tool" into its two parts.
func splitTarget(target string) (provider, tool string, ok bool) {
	for i := len(target) - 1; i >= 0; i-- {
		if target[i] == '.' {
			return target[:i], target[i+1:], true
		}
	}
	return "", "", false
}

// parseArgs turns ["key=value", ...] into a map, ignoring malformed entries.
func parseArgs(args []string) map[string]any {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		for i := 0; i < len(arg); i++ {
			if arg[i] == '=' {
				out[arg[:i]] = arg[i+1:]
				break
			}
		}
	}
	return out
}
