package server

import (
	"os"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
)

// PrepareFilesystem ensures the artifact directory exists
func PrepareFilesystem(cfg *config.Config) error {
	return os.MkdirAll(cfg.ArtifactsDir, 0755)
}
