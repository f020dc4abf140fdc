package planner

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

// newTaskID returns an id of the form task_<unix-ms>_<9 base36 chars>.
func newTaskID(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(suffix) > idSuffixLen {
		suffix = suffix[len(suffix)-idSuffixLen:]
	} else {
		suffix = strings.Repeat("0", idSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("task_%d_%s", now.UnixMilli(), suffix)
}
