package domain

import (
	"fmt"
	"strings"
	"time"
)

// FileSuffix is the extension of pivot documents.
const FileSuffix = ".osheet.json"

// DefaultSaveName is offered by the save dialog before any file was opened.
const DefaultSaveName = "Pipeline.osheet.modified.json"

// ExportName derives the file name offered when saving: the millisecond
// timestamp goes right before the .osheet.json suffix, or a default name is
// used when the original does not end with it.
func ExportName(original string, now time.Time) string {
	ts := now.UnixMilli()
	if strings.HasSuffix(original, FileSuffix) {
		return fmt.Sprintf("%s.%d%s", strings.TrimSuffix(original, FileSuffix), ts, FileSuffix)
	}
	return fmt.Sprintf("File.%d%s", ts, FileSuffix)
}
