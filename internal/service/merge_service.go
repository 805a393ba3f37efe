package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/housemerge/internal/merge"
	"github.com/mmynk/housemerge/internal/middleware"
	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/rpc"
)

// Ensure MergeService implements the Connect handler interface.
var _ rpc.MergeServiceHandler = (*MergeService)(nil)

// Merger is the part of the merge engine the service drives.
type Merger interface {
	Merge(ctx context.Context, req merge.Request) (*models.MergeAuditEntry, error)
	Preview(ctx context.Context, req merge.Request) (models.MoveCounts, error)
	ListAudits(ctx context.Context, groupID, callerUserID string) ([]*models.MergeAuditEntry, error)
}

// MergeService implements the Connect MergeService.
type MergeService struct {
	engine Merger
}

// NewMergeService creates a new MergeService on top of the merge engine.
func NewMergeService(engine Merger) *MergeService {
	return &MergeService{engine: engine}
}

// MergePeople folds an unclaimed placeholder into a claimed person.
func (s *MergeService) MergePeople(ctx context.Context, req *connect.Request[rpc.MergePeopleRequest]) (*connect.Response[rpc.MergePeopleResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("MergePeople request received",
		"group_id", req.Msg.GroupID,
		"source_person_id", req.Msg.SourcePersonID,
		"target_person_id", req.Msg.TargetPersonID,
		"user_id", userID,
	)

	entry, err := s.engine.Merge(ctx, merge.Request{
		GroupID:        req.Msg.GroupID,
		SourcePersonID: req.Msg.SourcePersonID,
		TargetPersonID: req.Msg.TargetPersonID,
		CallerUserID:   userID,
	})
	if err != nil {
		slog.Error("MergePeople failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("MergePeople successful", "group_id", req.Msg.GroupID, "audit_id", entry.ID)

	return connect.NewResponse(&rpc.MergePeopleResponse{Success: true}), nil
}

// PreviewMerge reports what MergePeople would change without changing it.
func (s *MergeService) PreviewMerge(ctx context.Context, req *connect.Request[rpc.PreviewMergeRequest]) (*connect.Response[rpc.PreviewMergeResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("PreviewMerge request received",
		"group_id", req.Msg.GroupID,
		"source_person_id", req.Msg.SourcePersonID,
		"target_person_id", req.Msg.TargetPersonID,
		"user_id", userID,
	)

	counts, err := s.engine.Preview(ctx, merge.Request{
		GroupID:        req.Msg.GroupID,
		SourcePersonID: req.Msg.SourcePersonID,
		TargetPersonID: req.Msg.TargetPersonID,
		CallerUserID:   userID,
	})
	if err != nil {
		slog.Error("PreviewMerge failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&rpc.PreviewMergeResponse{Counts: counts.Map()}), nil
}

// ListMergeAudits returns the group's merge history, newest first.
func (s *MergeService) ListMergeAudits(ctx context.Context, req *connect.Request[rpc.ListMergeAuditsRequest]) (*connect.Response[rpc.ListMergeAuditsResponse], error) {
	slog.Info("ListMergeAudits request received", "group_id", req.Msg.GroupID)

	entries, err := s.engine.ListAudits(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		slog.Error("ListMergeAudits failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &rpc.ListMergeAuditsResponse{Entries: make([]*rpc.MergeAudit, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, rpc.MergeAuditFromModel(e))
	}

	slog.Info("ListMergeAudits successful", "group_id", req.Msg.GroupID, "count", len(resp.Entries))

	return connect.NewResponse(resp), nil
}

// toConnectError maps engine errors onto Connect codes.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, merge.ErrAuthentication):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, merge.ErrAuthorization):
		return connect.NewError(connect.CodePermissionDenied, err)
	}

	switch merge.ValidationKindOf(err) {
	case "":
	case merge.KindPersonNotFound, merge.KindGroupMismatch:
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	if errors.Is(err, merge.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
