package handler

import (
	"log/slog"
	"net/http"

	"github.com/ironbell/pressgang/internal/adapter"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/service"
)

// Stack handles stack-related HTTP requests
type Stack struct {
	stackService *service.StackService
	logger       *slog.Logger
}

// NewStack creates a new Stack handler
func NewStack(stackService *service.StackService, logger *slog.Logger) *Stack {
	return &Stack{
		stackService: stackService,
		logger:       logger,
	}
}

// Up handles POST /up requests to bring a stack to a running state
func (h *Stack) Up(writer http.ResponseWriter, request *http.Request) {
	var upRequest api.UpStackRequest
	cb, err := parseBodyAndHandleError(writer, request, &upRequest, true)
	if err != nil {
		cb()
		return
	}

	if upRequest.Stack.Domain == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no stack domain specified in request",
		})
		return
	}

	params, err := adapter.AdaptStackSpec(upRequest.Stack)
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "invalid stack definition",
			Error:   err.Error(),
		})
		return
	}

	ctx := request.Context()
	runID, err := h.stackService.Up(ctx, params)
	if err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to bring stack up",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    map[string]string{"run_id": runID, "domain": params.Domain},
		Message: "stack is up",
	})
}

// Down handles POST /down requests to tear a stack down
func (h *Stack) Down(writer http.ResponseWriter, request *http.Request) {
	var downRequest api.DownStackRequest
	cb, err := parseBodyAndHandleError(writer, request, &downRequest, true)
	if err != nil {
		cb()
		return
	}

	if downRequest.Stack.Domain == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no stack domain specified in request",
		})
		return
	}

	params, err := adapter.AdaptStackSpec(downRequest.Stack)
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "invalid stack definition",
			Error:   err.Error(),
		})
		return
	}

	ctx := request.Context()
	if err := h.stackService.Down(ctx, params, downRequest.RemoveData); err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to take stack down",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    downRequest,
		Message: "stack is down",
	})
}

// Status handles POST /status requests to report container states
func (h *Stack) Status(writer http.ResponseWriter, request *http.Request) {
	var statusRequest api.StackStatusRequest
	cb, err := parseBodyAndHandleError(writer, request, &statusRequest, true)
	if err != nil {
		cb()
		return
	}

	if statusRequest.Stack.Domain == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no stack domain specified in request",
		})
		return
	}

	params, err := adapter.AdaptStackSpec(statusRequest.Stack)
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "invalid stack definition",
			Error:   err.Error(),
		})
		return
	}

	ctx := request.Context()
	states, err := h.stackService.Status(ctx, params)
	if err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to query stack status",
			Error:   err.Error(),
		})
		return
	}

	response := api.StackStatusResponse{
		Containers: adapter.AdaptContainerStates(states),
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    response,
		Message: "queried stack status successfully",
	})
}

// Verify handles POST /verify requests to run the acceptance checks
func (h *Stack) Verify(writer http.ResponseWriter, request *http.Request) {
	var verifyRequest api.VerifyStackRequest
	cb, err := parseBodyAndHandleError(writer, request, &verifyRequest, true)
	if err != nil {
		cb()
		return
	}

	if verifyRequest.Stack.Domain == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no stack domain specified in request",
		})
		return
	}

	params, err := adapter.AdaptStackSpec(verifyRequest.Stack)
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "invalid stack definition",
			Error:   err.Error(),
		})
		return
	}

	ctx := request.Context()
	report, err := h.stackService.Verify(ctx, params)
	if err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to verify stack",
			Error:   err.Error(),
		})
		return
	}

	response := adapter.AdaptVerifyReport(report)

	status := http.StatusOK
	message := "stack verification passed"
	if !response.Passed {
		// The checks ran; some found the stack unhealthy.
		status = http.StatusConflict
		message = "stack verification failed"
	}

	writeResult(writer, status, GenericResponse{
		Body:    response,
		Message: message,
	})
}
