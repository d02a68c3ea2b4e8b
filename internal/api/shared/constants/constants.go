package constants

const (
	MAX_PARTITIONS_PER_RUN    = 500
	DEFAULT_PENDING_PAGE_SIZE = 100
	MAX_PENDING_PAGE_SIZE     = 1000
)
