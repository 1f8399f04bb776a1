package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeplab/invitesweep/internal/config"
	"github.com/sweeplab/invitesweep/internal/invites"
)

// ScanExport is the on-disk shape of one scan run's results.
type ScanExport struct {
	ScannedAt    time.Time       `json:"scanned_at"`
	TotalScanned int             `json:"total_scanned"`
	Groups       []invites.Group `json:"groups"`
}

// SaveScanResults writes grouped scan results to a timestamped JSON file
// under the cache directory and returns its path.
func SaveScanResults(groups []invites.Group, totalScanned int) (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cacheDir, "scans")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scan export dir: %w", err)
	}

	export := ScanExport{
		ScannedAt:    time.Now(),
		TotalScanned: totalScanned,
		Groups:       groups,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility
	path := filepath.Join(dir, time.Now().Format("2006-01-02T15-04-05")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
