package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/id"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.POST("/assignments", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Grants a directly-held role to a subject."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/assignments/:assignmentId", a.unassignRole,
		forge.WithSummary("Unassign role"),
		forge.WithDescription("Revokes a role assignment."),
		forge.WithOperationID("unassignRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/assignments", a.listAssignments,
		forge.WithSummary("List assignments"),
		forge.WithDescription("Lists role assignments with optional filters."),
		forge.WithOperationID("listAssignments"),
		forge.WithRequestSchema(ListAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/subjects/:subjectId/roles", a.listSubjectRoles,
		forge.WithSummary("List subject roles"),
		forge.WithDescription("Lists the roles directly held by a subject. Inherited roles are not included."),
		forge.WithOperationID("listSubjectRoles"),
		forge.WithResponseSchema(http.StatusOK, "Directly-held roles", SubjectRolesResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	if req.SubjectID == "" || req.Role == "" {
		return nil, forge.BadRequest("subject_id and role are required")
	}

	asgn := &assignment.Assignment{
		ID:        id.NewAssignmentID(),
		TenantID:  req.TenantID,
		SubjectID: req.SubjectID,
		Role:      req.Role,
		GrantedBy: req.GrantedBy,
		CreatedAt: time.Now(),
	}

	if err := a.eng.Store().AssignRole(ctx.Context(), asgn); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRoleAssigned(ctx.Context(), asgn)
	}

	return asgn, ctx.JSON(http.StatusCreated, asgn)
}

func (a *API) unassignRole(ctx forge.Context, _ *GetAssignmentRequest) (*struct{}, error) {
	assignID, err := id.ParseAssignmentID(ctx.Param("assignmentId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid assignment ID: %v", err))
	}

	if err := a.eng.Store().UnassignRole(ctx.Context(), assignID); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitRoleUnassigned(ctx.Context(), assignID)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listAssignments(ctx forge.Context, req *ListAssignmentsRequest) ([]*assignment.Assignment, error) {
	filter := &assignment.ListFilter{
		TenantID:  req.TenantID,
		SubjectID: req.SubjectID,
		Role:      req.Role,
		Limit:     defaultLimit(req.Limit),
		Offset:    req.Offset,
	}

	assignments, err := a.eng.Store().ListAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return assignments, ctx.JSON(http.StatusOK, assignments)
}

func (a *API) listSubjectRoles(ctx forge.Context, _ *ListSubjectRolesRequest) (*SubjectRolesResponse, error) {
	subjectID := ctx.Param("subjectId")
	if subjectID == "" {
		return nil, forge.BadRequest("subjectId is required")
	}

	roles, err := a.eng.Store().ListRolesForSubject(ctx.Context(), subjectID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &SubjectRolesResponse{SubjectID: subjectID, Roles: roles}
	return resp, ctx.JSON(http.StatusOK, resp)
}
