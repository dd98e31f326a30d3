package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/subject"
)

func (a *API) registerSubjectRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("subjects"))

	if err := g.PUT("/subjects", a.upsertSubject,
		forge.WithSummary("Upsert subject"),
		forge.WithDescription("Creates or refreshes a subject record, keyed by the external subject ID."),
		forge.WithOperationID("upsertSubject"),
		forge.WithRequestSchema(UpsertSubjectRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Stored record", &subject.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/subjects/:subjectId", a.getSubject,
		forge.WithSummary("Get subject"),
		forge.WithDescription("Returns a subject record by external subject ID."),
		forge.WithOperationID("getSubject"),
		forge.WithResponseSchema(http.StatusOK, "Subject record", &subject.Record{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/subjects", a.listSubjects,
		forge.WithSummary("List subjects"),
		forge.WithDescription("Lists subject records with optional filters."),
		forge.WithOperationID("listSubjects"),
		forge.WithRequestSchema(ListSubjectsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Subject list", []*subject.Record{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) upsertSubject(ctx forge.Context, req *UpsertSubjectRequest) (*subject.Record, error) {
	if req.SubjectID == "" {
		return nil, forge.BadRequest("subject_id is required")
	}

	now := time.Now()
	rec := &subject.Record{
		ID:          id.NewSubjectID(),
		TenantID:    req.TenantID,
		SubjectID:   req.SubjectID,
		DisplayName: req.DisplayName,
		Attributes:  req.Attributes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := a.eng.Store().UpsertSubject(ctx.Context(), rec); err != nil {
		return nil, mapError(err)
	}

	if a.eng.Plugins() != nil {
		a.eng.Plugins().EmitSubjectUpserted(ctx.Context(), rec)
	}

	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) getSubject(ctx forge.Context, _ *GetSubjectRequest) (*subject.Record, error) {
	subjectID := ctx.Param("subjectId")
	if subjectID == "" {
		return nil, forge.BadRequest("subjectId is required")
	}

	rec, err := a.eng.Store().GetSubject(ctx.Context(), subjectID)
	if err != nil {
		return nil, mapError(err)
	}

	return rec, ctx.JSON(http.StatusOK, rec)
}

func (a *API) listSubjects(ctx forge.Context, req *ListSubjectsRequest) ([]*subject.Record, error) {
	filter := &subject.ListFilter{
		TenantID: req.TenantID,
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}

	records, err := a.eng.Store().ListSubjects(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return records, ctx.JSON(http.StatusOK, records)
}
