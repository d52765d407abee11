package handler

import (
	"log/slog"
	"net/http"

	"github.com/ironbell/pressgang/internal/adapter"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/service"
)

// Machine handles development machine HTTP requests
type Machine struct {
	machineService *service.MachineService
	logger         *slog.Logger
}

// NewMachine creates a new Machine handler
func NewMachine(machineService *service.MachineService, logger *slog.Logger) *Machine {
	return &Machine{
		machineService: machineService,
		logger:         logger,
	}
}

// Create handles POST /create requests to define and start a machine
func (h *Machine) Create(writer http.ResponseWriter, request *http.Request) {
	var createRequest api.CreateMachineRequest
	cb, err := parseBodyAndHandleError(writer, request, &createRequest, true)
	if err != nil {
		cb()
		return
	}

	if createRequest.Name == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no machine name specified in request",
		})
		return
	}

	params := adapter.AdaptCreateMachine(createRequest)

	ctx := request.Context()
	if err := h.machineService.Create(ctx, params); err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to create machine",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    createRequest,
		Message: "created machine successfully",
	})
}

// Delete handles POST /delete requests to destroy a machine
func (h *Machine) Delete(writer http.ResponseWriter, request *http.Request) {
	var deleteRequest api.DeleteMachineRequest
	cb, err := parseBodyAndHandleError(writer, request, &deleteRequest, true)
	if err != nil {
		cb()
		return
	}

	if deleteRequest.Name == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no machine name specified in request",
		})
		return
	}

	ctx := request.Context()
	if err := h.machineService.Delete(ctx, service.DeleteMachineParams{Name: deleteRequest.Name}); err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to delete machine",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    deleteRequest,
		Message: "deleted machine successfully",
	})
}

// Provision handles POST /provision requests to install the container engine
func (h *Machine) Provision(writer http.ResponseWriter, request *http.Request) {
	var provisionRequest api.ProvisionMachineRequest
	cb, err := parseBodyAndHandleError(writer, request, &provisionRequest, true)
	if err != nil {
		cb()
		return
	}

	if provisionRequest.SSH.Host == "" || provisionRequest.SSH.User == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no SSH access specified in request",
		})
		return
	}

	params := adapter.AdaptProvisionMachine(provisionRequest)

	ctx := request.Context()
	if err := h.machineService.Provision(ctx, params); err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to provision machine",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    provisionRequest,
		Message: "provisioned machine successfully",
	})
}

// Info handles POST /info requests to query a machine
func (h *Machine) Info(writer http.ResponseWriter, request *http.Request) {
	var infoRequest api.MachineInfoRequest
	cb, err := parseBodyAndHandleError(writer, request, &infoRequest, true)
	if err != nil {
		cb()
		return
	}

	if infoRequest.Name == "" {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "no machine name specified in request",
		})
		return
	}

	ctx := request.Context()
	info, err := h.machineService.Info(ctx, service.MachineInfoParams{Name: infoRequest.Name})
	if err != nil {
		writeResult(writer, http.StatusInternalServerError, GenericResponse{
			Body:    nil,
			Message: "failed to query machine",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    info,
		Message: "queried machine successfully",
	})
}
