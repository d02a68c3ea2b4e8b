package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/bib-pipeline/internal/api/shared/dto"
	"github.com/feral-file/bib-pipeline/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// StartRun starts the pipeline run of a partition date and environment (requires authentication)
	// POST /api/v1/runs
	StartRun(c *gin.Context)

	// GetRun retrieves a pipeline run from the run registry
	// GET /api/v1/runs/:id
	GetRun(c *gin.Context)

	// GetCustomerUsage retrieves a customer contract and usage (requires authentication)
	// GET /api/v1/customers/:id/usage
	GetCustomerUsage(c *gin.Context)

	// UpsertContract creates or updates a customer contract (requires authentication)
	// PUT /api/v1/customers/:id/contract
	UpsertContract(c *gin.Context)

	// ListPending lists mirrored objects that have not been processed
	// GET /api/v1/pending?partition_date=<date>&environment=<env>&page_token=<token>&page_size=<size>
	ListPending(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

func (h *handler) StartRun(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.StartRun(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to start pipeline run")
		return
	}

	c.JSON(http.StatusAccepted, response)
}

func (h *handler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Run ID is required")
		return
	}

	run, err := h.executor.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get pipeline run")
		return
	}
	if run == nil {
		respondNotFound(c, "Pipeline run not found")
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *handler) GetCustomerUsage(c *gin.Context) {
	customerID := c.Param("id")
	if customerID == "" {
		respondBadRequest(c, "Customer ID is required")
		return
	}

	usage, err := h.executor.GetCustomerUsage(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err, "Failed to get customer usage")
		return
	}
	if usage == nil {
		respondNotFound(c, "Customer contract not found")
		return
	}

	c.JSON(http.StatusOK, usage)
}

func (h *handler) UpsertContract(c *gin.Context) {
	customerID := c.Param("id")
	if customerID == "" {
		respondBadRequest(c, "Customer ID is required")
		return
	}

	var req dto.UpsertContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	usage, err := h.executor.UpsertContract(c.Request.Context(), customerID, req)
	if err != nil {
		respondError(c, err, "Failed to upsert customer contract")
		return
	}

	c.JSON(http.StatusOK, usage)
}

func (h *handler) ListPending(c *gin.Context) {
	params, err := ParseListPendingQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListPending(c.Request.Context(), params.Date, params.Env, params.PageToken, params.PageSize)
	if err != nil {
		respondError(c, err, "Failed to list pending objects")
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *handler) HealthCheck(c *gin.Context) {
	if err := h.executor.CheckHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"service": "bib-pipeline-api",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bib-pipeline-api",
	})
}
