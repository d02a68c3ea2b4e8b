package objectstore

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// sniffLimit is how much of an object the content type detection looks at
const sniffLimit = 3072

// SniffImage detects the content type of data and returns it when it is an image
func SniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty object", domain.ErrUnsupportedObject)
	}

	head := data
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}

	mtype := mimetype.Detect(head)
	if mtype == nil || !strings.HasPrefix(mtype.String(), "image/") {
		detected := "unknown"
		if mtype != nil {
			detected = mtype.String()
		}
		return "", fmt.Errorf("%w: detected %s", domain.ErrUnsupportedObject, detected)
	}

	return mtype.String(), nil
}
