// Package cli provides CLI commands for the handover application.
package cli

import (
	gocontext "context"
	"os"

	"github.com/example/handover/internal/config"
	"github.com/example/handover/internal/ctxutil"
)

// globalAuthority stores the detected authority identity for the current CLI
// invocation. Set once at startup by DetectAndStoreAuthority().
var globalAuthority string

// globalSchoolID stores the operator's school scope for the current CLI
// invocation.
var globalSchoolID string

// DetectAndStoreAuthority loads the operator identity from .handover/config.json
// in the working directory. Should be called once at CLI startup in
// PersistentPreRun. Missing config is fine; flags can supply both values.
func DetectAndStoreAuthority() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return
	}
	globalAuthority = cfg.AuthorityIdentity
	globalSchoolID = cfg.SchoolID
}

// GetAuthority returns the stored authority identity from CLI startup.
func GetAuthority() string {
	return globalAuthority
}

// GetSchoolID returns the stored school scope from CLI startup.
func GetSchoolID() string {
	return globalSchoolID
}

// NewContext creates a context.Background() with the current authority
// identity embedded. CLI commands should use this instead of
// context.Background() directly.
func NewContext() gocontext.Context {
	ctx := gocontext.Background()
	if globalAuthority != "" {
		return ctxutil.WithAuthority(ctx, globalAuthority)
	}
	return ctx
}

// schoolFlag resolves the school scope: an explicit flag wins over config.
func schoolFlag(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return globalSchoolID
}
