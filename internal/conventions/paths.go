package conventions

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultRootDir is the default ringside data directory name (relative to home).
	DefaultRootDir = ".ringside"
	// RepoDir is the subdirectory holding the source checkout.
	RepoDir = "ipa"
	// BuildsDir is the subdirectory holding per-build cargo target dirs.
	BuildsDir = "builds"
	// LogsDir is the subdirectory holding per-query log files.
	LogsDir = "logs"

	// DBFile is the query history database filename.
	DBFile = "ringside.db"
	// NetworkFile is the ring topology file expected under the config dir.
	NetworkFile = "network.toml"

	// ManifestFile is the cargo manifest filename inside the source checkout.
	ManifestFile = "Cargo.toml"
	// ReportCollectorBin is the coordinator binary name.
	ReportCollectorBin = "report_collector"
	// HelperBin is the helper binary name.
	HelperBin = "helper"
)

// RepoPath returns the source checkout directory.
func RepoPath(rootDir string) string {
	return filepath.Join(rootDir, RepoDir)
}

// ManifestPath returns the cargo manifest path inside the checkout.
func ManifestPath(rootDir string) string {
	return filepath.Join(RepoPath(rootDir), ManifestFile)
}

// TargetPath returns the cargo target directory for a build ID. Keeping one
// directory per build ID is what makes recompiles of a known build a no-op.
func TargetPath(rootDir, buildID string) string {
	return filepath.Join(rootDir, BuildsDir, buildID)
}

// BinaryPath returns the path of a release binary inside a build target dir.
func BinaryPath(rootDir, buildID, binary string) string {
	return filepath.Join(TargetPath(rootDir, buildID), "release", binary)
}

// QueryLogPath returns the log file of a query.
func QueryLogPath(rootDir, queryID string) string {
	return filepath.Join(rootDir, LogsDir, queryID+".log")
}

// InputFilePath returns the generated input file for a query size. It lives
// inside the checkout because the report collector resolves it from there.
func InputFilePath(rootDir string, size int) string {
	return filepath.Join(RepoPath(rootDir), "test_data", "input", fmt.Sprintf("events-%d.txt", size))
}

// DBPath returns the query history database path.
func DBPath(rootDir string) string {
	return filepath.Join(rootDir, DBFile)
}

// NetworkPath returns the ring topology file path.
func NetworkPath(configDir string) string {
	return filepath.Join(configDir, NetworkFile)
}

// TLSCertPath returns the public TLS certificate of a node identity.
func TLSCertPath(configDir string, identity int) string {
	return filepath.Join(configDir, "pub", fmt.Sprintf("h%d.pem", identity))
}

// TLSKeyPath returns the private TLS key of a node identity.
func TLSKeyPath(configDir string, identity int) string {
	return filepath.Join(configDir, fmt.Sprintf("h%d.key", identity))
}

// MatchKeyPublicPath returns the public match key encryption key of a node identity.
func MatchKeyPublicPath(configDir string, identity int) string {
	return filepath.Join(configDir, "pub", fmt.Sprintf("h%d_mk.pub", identity))
}

// MatchKeyPrivatePath returns the private match key decryption key of a node identity.
func MatchKeyPrivatePath(configDir string, identity int) string {
	return filepath.Join(configDir, fmt.Sprintf("h%d_mk.key", identity))
}
