package doctor

import (
	"context"
	"fmt"

	"github.com/jlevy/tbd/internal/config"
	"github.com/jlevy/tbd/internal/gitx"
)

// CheckGitVersion reports whether the installed git meets
// gitx.MinSupportedVersion (spec.md §4.1, §4.6).
func CheckGitVersion(ctx context.Context, dc Context, _ bool) DiagnosticResult {
	info, err := dc.MainClient.CheckVersion(ctx)
	if err != nil {
		return DiagnosticResult{
			Name:    "git version",
			Status:  StatusError,
			Message: "could not determine installed git version",
			Details: err.Error(),
		}
	}
	if !info.Supported {
		min := gitx.MinSupportedVersion
		return DiagnosticResult{
			Name:    "git version",
			Status:  StatusError,
			Message: fmt.Sprintf("git %d.%d.%d is older than the minimum supported %d.%d.%d", info.Major, info.Minor, info.Patch, min.Major, min.Minor, min.Patch),
		}
	}
	return DiagnosticResult{
		Name:    "git version",
		Status:  StatusOK,
		Message: fmt.Sprintf("git %d.%d.%d", info.Major, info.Minor, info.Patch),
	}
}

// CheckConfig reports config.yml's presence and structural validity
// (spec.md §4.6).
func CheckConfig(_ context.Context, dc Context, _ bool) DiagnosticResult {
	if !config.Exists(dc.TbdRoot) {
		return DiagnosticResult{
			Name:       "config file",
			Status:     StatusWarn,
			Message:    "no config.yml found; running on defaults",
			Path:       dc.TbdRoot,
			Suggestion: "run `tbd init` to write a config.yml",
		}
	}
	cfg, err := config.Load(dc.TbdRoot)
	if err != nil {
		return DiagnosticResult{
			Name:    "config file",
			Status:  StatusError,
			Message: "config.yml could not be parsed",
			Path:    dc.TbdRoot,
			Details: err.Error(),
		}
	}
	if err := config.Validate(cfg); err != nil {
		return DiagnosticResult{
			Name:    "config file",
			Status:  StatusError,
			Message: "config.yml is invalid",
			Details: err.Error(),
		}
	}
	return DiagnosticResult{
		Name:    "config file",
		Status:  StatusOK,
		Message: fmt.Sprintf("sync.branch=%s sync.remote=%s", cfg.SyncBranch, cfg.SyncRemote),
	}
}
