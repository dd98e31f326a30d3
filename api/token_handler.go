package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/token"
)

func (a *API) registerTokenRoutes(router forge.Router) error {
	g := router.Group("/v1/tokens", forge.WithGroupTags("tokens"))

	if err := g.POST("/issue", a.issueToken,
		forge.WithSummary("Issue token"),
		forge.WithDescription("Verifies a credential against the identity provider and mints a signed identity token."),
		forge.WithOperationID("issueToken"),
		forge.WithRequestSchema(IssueTokenRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Issued token", TokenResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/validate", a.validateToken,
		forge.WithSummary("Validate token"),
		forge.WithDescription("Verifies a token's signature and expiry and returns the subject it carries."),
		forge.WithOperationID("validateToken"),
		forge.WithRequestSchema(ValidateTokenRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Token subject", ValidateTokenResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) issueToken(ctx forge.Context, req *IssueTokenRequest) (*TokenResponse, error) {
	if req.Identifier == "" || req.Secret == "" {
		return nil, forge.BadRequest("identifier and secret are required")
	}

	subj, err := a.tokens.ValidateCredential(ctx.Context(), token.Credential{
		Identifier: req.Identifier,
		Secret:     req.Secret,
	})
	if err != nil {
		return nil, mapError(err)
	}

	signed, err := a.tokens.IssueToken(ctx.Context(), subj, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitTokenIssued(ctx.Context(), subj.ID)
	}

	resp := &TokenResponse{Token: signed, SubjectID: subj.ID}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) validateToken(ctx forge.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	if req.Token == "" {
		return nil, forge.BadRequest("token is required")
	}

	subj, err := a.tokens.ValidateToken(ctx.Context(), req.Token)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ValidateTokenResponse{SubjectID: subj.ID, Attributes: subj.Attributes}
	return resp, ctx.JSON(http.StatusOK, resp)
}
