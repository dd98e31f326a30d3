package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/hierarchy"
	"github.com/xraph/bastion/id"
)

func (a *API) registerHierarchyRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("hierarchy"))

	if err := g.POST("/hierarchy/edges", a.addEdge,
		forge.WithSummary("Add inheritance edge"),
		forge.WithDescription("Adds a child-to-parent role inheritance edge. Edges that would close a cycle are rejected."),
		forge.WithOperationID("addEdge"),
		forge.WithRequestSchema(AddEdgeRequest{}),
		forge.WithCreatedResponse(&hierarchy.Edge{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/hierarchy/edges/:edgeId", a.removeEdge,
		forge.WithSummary("Remove inheritance edge"),
		forge.WithDescription("Removes a role inheritance edge."),
		forge.WithOperationID("removeEdge"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/hierarchy/edges", a.listEdges,
		forge.WithSummary("List inheritance edges"),
		forge.WithDescription("Lists role inheritance edges with optional filters."),
		forge.WithOperationID("listEdges"),
		forge.WithRequestSchema(ListEdgesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Edge list", []*hierarchy.Edge{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) addEdge(ctx forge.Context, req *AddEdgeRequest) (*hierarchy.Edge, error) {
	if req.Child == "" || req.Parent == "" {
		return nil, forge.BadRequest("child and parent are required")
	}

	e := &hierarchy.Edge{
		ID:        id.NewEdgeID(),
		TenantID:  req.TenantID,
		Child:     req.Child,
		Parent:    req.Parent,
		CreatedAt: time.Now(),
	}

	if err := a.eng.Store().AddRoleEdge(ctx.Context(), e); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitEdgeAdded(ctx.Context(), e)
	}

	return e, ctx.JSON(http.StatusCreated, e)
}

func (a *API) removeEdge(ctx forge.Context, _ *GetEdgeRequest) (*struct{}, error) {
	edgeID, err := id.ParseEdgeID(ctx.Param("edgeId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid edge ID: %v", err))
	}

	if err := a.eng.Store().RemoveRoleEdge(ctx.Context(), edgeID); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitEdgeRemoved(ctx.Context(), edgeID)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listEdges(ctx forge.Context, req *ListEdgesRequest) ([]*hierarchy.Edge, error) {
	filter := &hierarchy.ListFilter{
		TenantID: req.TenantID,
		Child:    req.Child,
		Parent:   req.Parent,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	edges, err := a.eng.Store().ListEdges(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return edges, ctx.JSON(http.StatusOK, edges)
}
