package bastion

import (
	"context"

	"github.com/xraph/forge"
)

// tenantScope is the tenant tag a check runs under. Tenancy is tag-only:
// the scope picks which rules ListRules returns and namespaces cache
// keys, nothing more.
type tenantScope struct {
	appID    string
	tenantID string
}

// scopeFromContext extracts the tenant tag for a check. When Bastion
// runs inside a Forge app the ambient forge.Scope wins; standalone
// callers set the tag explicitly with WithTenant.
func scopeFromContext(ctx context.Context) tenantScope {
	s, ok := forge.ScopeFrom(ctx)
	if ok {
		return tenantScope{
			appID:    s.AppID(),
			tenantID: s.OrgID(),
		}
	}
	return tenantScope{
		appID:    appIDFromContext(ctx),
		tenantID: tenantIDFromContext(ctx),
	}
}
