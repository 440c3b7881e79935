package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputName builds the timestamped export filename for a source file,
// e.g. "Emendo_clip_20260830_142501.mkv".
func OutputName(sourcePath, ext string, now time.Time) string {
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("Emendo_%s_%s.%s", name, now.Format("20060102_150405"), ext)
}

// EnsureDir creates the export directory if needed and returns the
// directory exports should actually land in. When the directory cannot
// be created the user's home is used instead; exports never fail over a
// missing folder.
func EnsureDir(dir string, logger *slog.Logger) string {
	err := os.MkdirAll(dir, 0755)
	if err == nil {
		return dir
	}
	logger.Warn("cannot create export directory, falling back to home", "dir", dir, "error", err)

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("cannot resolve home directory", "error", err)
		return "."
	}
	return home
}
