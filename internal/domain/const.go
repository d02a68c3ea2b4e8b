package domain

const (
	// Partition date layout used in ledgers, object keys and partition table names
	PARTITION_DATE_LAYOUT = "2006-01-02"

	// DEFAULT_CUSTOMER_ID is used when a run does not name a customer
	DEFAULT_CUSTOMER_ID = "allsports"

	// THUMBNAIL_MARKER separates the photo number from the rest of a thumbnail filename
	THUMBNAIL_MARKER = "_tn_"

	// BIB_TAG_DIGITS is the width bib tags are zero-padded to in reports
	BIB_TAG_DIGITS = 5
)

// SupportedImageExtensions lists the source object extensions that are mirrored
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png"}
