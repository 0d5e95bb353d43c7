// Package server exposes the drill trainer over Connect RPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/leakdrill/internal/auth"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/trainer"
)

const DrillServiceName = "leakdrill.v1.DrillService"

const (
	GetDueDrillsProcedure      = "/" + DrillServiceName + "/GetDueDrills"
	SubmitDrillResultProcedure = "/" + DrillServiceName + "/SubmitDrillResult"
	UpdateReasonOnlyProcedure  = "/" + DrillServiceName + "/UpdateReasonOnly"
)

// Trainer is the drill workflow the handler delegates to.
type Trainer interface {
	Submit(ctx context.Context, userID string, sub trainer.Submission) (*trainer.Result, error)
	UpdateReasonOnly(ctx context.Context, userID, trainingEventID, reason string) error
	DueDrills(ctx context.Context, userID string, limit int) ([]queue.Entry, error)
}

// DrillHandler implements DrillService.
type DrillHandler struct {
	trainer   Trainer
	validator *requestValidator
}

// NewDrillHandler creates a new DrillHandler.
func NewDrillHandler(t Trainer) (*DrillHandler, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("newRequestValidator() > %w", err)
	}
	return &DrillHandler{trainer: t, validator: v}, nil
}

// NewDrillServiceHandler mounts h under the DrillService path.
func NewDrillServiceHandler(h *DrillHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	getDueDrills := connect.NewUnaryHandler(GetDueDrillsProcedure, h.GetDueDrills, opts...)
	submitDrillResult := connect.NewUnaryHandler(SubmitDrillResultProcedure, h.SubmitDrillResult, opts...)
	updateReasonOnly := connect.NewUnaryHandler(UpdateReasonOnlyProcedure, h.UpdateReasonOnly, opts...)

	return "/" + DrillServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GetDueDrillsProcedure:
			getDueDrills.ServeHTTP(w, r)
		case SubmitDrillResultProcedure:
			submitDrillResult.ServeHTTP(w, r)
		case UpdateReasonOnlyProcedure:
			updateReasonOnly.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (h *DrillHandler) GetDueDrills(
	ctx context.Context,
	req *connect.Request[GetDueDrillsRequest],
) (*connect.Response[GetDueDrillsResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	userID, _ := auth.UserID(ctx)

	entries, err := h.trainer.DueDrills(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	drills := make([]DueDrill, 0, len(entries))
	for _, e := range entries {
		drills = append(drills, newDueDrill(e))
	}
	return connect.NewResponse(&GetDueDrillsResponse{Drills: drills}), nil
}

func (h *DrillHandler) SubmitDrillResult(
	ctx context.Context,
	req *connect.Request[SubmitDrillResultRequest],
) (*connect.Response[SubmitDrillResultResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	userID, _ := auth.UserID(ctx)

	result, err := h.trainer.Submit(ctx, userID, trainer.Submission{
		DrillQueueID:  req.Msg.DrillQueueID,
		Scenario:      req.Msg.Scenario,
		DrillType:     req.Msg.DrillType,
		UserAnswer:    req.Msg.UserAnswer,
		UserAction:    req.Msg.UserAction,
		RaiseSizeBB:   req.Msg.RaiseSizeBB,
		MistakeReason: req.Msg.MistakeReason,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&SubmitDrillResultResponse{
		OK:              true,
		Correct:         result.Correct,
		Explanation:     result.Explanation,
		NextDueAt:       result.NextDueAt,
		Repetition:      result.Repetition,
		TrainingEventID: result.TrainingEventID,
		SkillRating:     result.SkillRating,
	}), nil
}

func (h *DrillHandler) UpdateReasonOnly(
	ctx context.Context,
	req *connect.Request[UpdateReasonOnlyRequest],
) (*connect.Response[UpdateReasonOnlyResponse], error) {
	if err := h.validator.check(req.Msg); err != nil {
		return nil, err
	}
	userID, _ := auth.UserID(ctx)

	if err := h.trainer.UpdateReasonOnly(ctx, userID, req.Msg.TrainingEventID, req.Msg.MistakeReason); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&UpdateReasonOnlyResponse{OK: true}), nil
}

func toConnectError(err error) *connect.Error {
	var (
		validationErr  *trainer.ValidationError
		persistenceErr *trainer.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return newInvalidArgumentError(err, &errdetails.BadRequest_FieldViolation{
			Field:       validationErr.Field,
			Description: validationErr.Reason,
		})
	case errors.Is(err, trainer.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, trainer.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, trainer.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.As(err, &persistenceErr):
		slog.Default().Error("Storage failure",
			"op", persistenceErr.Op,
			"error", persistenceErr.Err)
		return connect.NewError(connect.CodeInternal, fmt.Errorf("%s failed", persistenceErr.Op))
	default:
		slog.Default().Error("Unexpected error", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
