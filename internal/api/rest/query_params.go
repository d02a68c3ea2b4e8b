package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/bib-pipeline/internal/api/shared/constants"
	"github.com/feral-file/bib-pipeline/internal/domain"
)

// ListPendingQueryParams holds query parameters for GET /pending
type ListPendingQueryParams struct {
	PartitionDate string `form:"partition_date" binding:"required"`
	Environment   string `form:"environment" binding:"required"`
	PageToken     string `form:"page_token"`
	PageSize      int    `form:"page_size,default=100"`

	// Parsed values
	Date time.Time          `form:"-"`
	Env  domain.Environment `form:"-"`
}

// ParseListPendingQuery parses and validates query parameters for GET /pending
func ParseListPendingQuery(c *gin.Context) (*ListPendingQueryParams, error) {
	var params ListPendingQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	date, err := domain.ParsePartitionDate(params.PartitionDate)
	if err != nil {
		return nil, err
	}
	env, err := domain.ParseEnvironment(params.Environment)
	if err != nil {
		return nil, err
	}
	params.Date = date
	params.Env = env

	// Cap page size
	if params.PageSize <= 0 {
		params.PageSize = constants.DEFAULT_PENDING_PAGE_SIZE
	}
	if params.PageSize > constants.MAX_PENDING_PAGE_SIZE {
		params.PageSize = constants.MAX_PENDING_PAGE_SIZE
	}

	return &params, nil
}
