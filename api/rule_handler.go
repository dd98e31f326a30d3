package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/rule"
)

func (a *API) registerRuleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("rules"))

	if err := g.POST("/rules", a.createRule,
		forge.WithSummary("Create rule"),
		forge.WithDescription("Creates a new policy rule with a generated ID."),
		forge.WithOperationID("createRule"),
		forge.WithRequestSchema(PutRuleRequest{}),
		forge.WithCreatedResponse(&rule.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/rules/:ruleId", a.putRule,
		forge.WithSummary("Put rule"),
		forge.WithDescription("Creates or replaces the rule with the given ID."),
		forge.WithOperationID("putRule"),
		forge.WithRequestSchema(PutRuleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Stored rule", &rule.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/rules/:ruleId", a.getRule,
		forge.WithSummary("Get rule"),
		forge.WithDescription("Returns a single policy rule."),
		forge.WithOperationID("getRule"),
		forge.WithResponseSchema(http.StatusOK, "Rule details", &rule.Rule{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/rules/:ruleId", a.deleteRule,
		forge.WithSummary("Delete rule"),
		forge.WithDescription("Deletes a policy rule."),
		forge.WithOperationID("deleteRule"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/rules", a.listRules,
		forge.WithSummary("List rules"),
		forge.WithDescription("Lists policy rules with optional filters."),
		forge.WithOperationID("listRules"),
		forge.WithRequestSchema(ListRulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Rule list", ListResponse[*rule.Rule]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRule(ctx forge.Context, req *PutRuleRequest) (*rule.Rule, error) {
	r, err := ruleFromRequest(id.NewRuleID(), req)
	if err != nil {
		return nil, err
	}

	if err := a.eng.Store().PutRule(ctx.Context(), r); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRulePut(ctx.Context(), r)
	}

	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) putRule(ctx forge.Context, req *PutRuleRequest) (*rule.Rule, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	r, err := ruleFromRequest(ruleID, req)
	if err != nil {
		return nil, err
	}

	if err := a.eng.Store().PutRule(ctx.Context(), r); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRulePut(ctx.Context(), r)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) getRule(ctx forge.Context, _ *GetRuleRequest) (*rule.Rule, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	r, err := a.eng.Store().GetRule(ctx.Context(), ruleID)
	if err != nil {
		return nil, mapError(err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRule(ctx forge.Context, _ *GetRuleRequest) (*struct{}, error) {
	ruleID, err := id.ParseRuleID(ctx.Param("ruleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid rule ID: %v", err))
	}

	if err := a.eng.Store().DeleteRule(ctx.Context(), ruleID); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRuleDeleted(ctx.Context(), ruleID)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRules(ctx forge.Context, req *ListRulesRequest) (*ListResponse[*rule.Rule], error) {
	filter := &rule.ListFilter{
		TenantID: req.TenantID,
		Effect:   rule.Effect(req.Effect),
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	rules, err := a.eng.Store().ListRules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountRules(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*rule.Rule]{
		Items:  rules,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func ruleFromRequest(ruleID id.RuleID, req *PutRuleRequest) (*rule.Rule, error) {
	if req.Subject == "" || req.Resource == "" || req.Action == "" {
		return nil, forge.BadRequest("subject, resource, and action are required")
	}
	effect := rule.Effect(req.Effect)
	if !effect.Valid() {
		return nil, forge.BadRequest(fmt.Sprintf("invalid effect %q", req.Effect))
	}

	now := time.Now()
	r := &rule.Rule{
		ID:          ruleID,
		TenantID:    req.TenantID,
		Description: req.Description,
		Subject:     req.Subject,
		Resource:    req.Resource,
		Action:      req.Action,
		Effect:      effect,
		Priority:    req.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, c := range req.Conditions {
		r.Conditions = append(r.Conditions, rule.Condition{
			Field:    c.Field,
			Operator: rule.Operator(c.Operator),
			Value:    c.Value,
		})
	}
	return r, nil
}
