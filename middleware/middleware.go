// Package middleware provides HTTP authorization middleware for Bastion.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

// Require enforces authorization. It resolves the subject from the
// request context (Forge user > anonymous) and checks whether the
// subject can perform the given action on the resource. When the route
// carries an ":id" parameter it is appended to the resource as
// "resource:id", matching the pattern form rules use.
func Require(eng *bastion.Engine, action, resource string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			res := resource
			if resourceID := ctx.Param("id"); resourceID != "" {
				res = resource + ":" + resourceID
			}

			err := eng.Enforce(ctx.Context(), &bastion.CheckRequest{
				Subject:  resolveSubject(ctx),
				Action:   action,
				Resource: res,
			})
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the checks pass.
func RequireAny(eng *bastion.Engine, checks ...bastion.CheckRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			for i := range checks {
				c := checks[i]
				c.Subject = subject
				dec, err := eng.Check(ctx.Context(), &c)
				if err == nil && dec.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL checks pass.
func RequireAll(eng *bastion.Engine, checks ...bastion.CheckRequest) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			for i := range checks {
				c := checks[i]
				c.Subject = subject
				if err := eng.Enforce(ctx.Context(), &c); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolveSubject extracts the subject from context.
// Priority: Forge user ID → anonymous. An anonymous subject still goes
// through the engine, so strict mode rejects it unless a record exists.
func resolveSubject(ctx forge.Context) bastion.Subject {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return bastion.Subject{ID: userID}
	}
	return bastion.Subject{ID: "anonymous"}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
