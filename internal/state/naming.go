package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const ImagePrefix = "drawing-"

// NewImageName returns drawing-<epoch-millis>-<suffix>.png. The random
// suffix keeps names generated within the same millisecond apart.
func NewImageName(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%s%d-%x.png", ImagePrefix, now.UnixMilli(), id[:4])
}
