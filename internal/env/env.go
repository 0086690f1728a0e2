// Package env captures details about the soyuz environment. Inspect the
// environment using `soyuz env`.
package env

import (
	"os"
	"path/filepath"
)

// Root is the directory in which soyuz keeps its configuration, database,
// archives and logs.
var Root = findRoot()

func findRoot() string {
	env := os.Getenv("SOYUZROOT")
	if env != "" {
		return env
	}
	return os.ExpandEnv("$HOME/soyuz") // default
}

// ConfigPath returns the path of the configuration file within root.
func ConfigPath(root string) string { return filepath.Join(root, "soyuz.yaml") }

// DatabasePath returns the path of the database within root.
func DatabasePath(root string) string { return filepath.Join(root, "soyuz.db") }

// LockDir returns the directory holding cron script lock files.
func LockDir(root string) string { return filepath.Join(root, "lock") }

// OopsDir returns the directory holding error reports.
func OopsDir(root string) string { return filepath.Join(root, "oops") }

// LibrarianDir returns the content-addressed file store.
func LibrarianDir(root string) string { return filepath.Join(root, "librarian") }

// IncomingDir returns the directory into which build results are retrieved.
func IncomingDir(root string) string { return filepath.Join(root, "incoming") }

// ArchiveRoot returns the default directory of published archives.
func ArchiveRoot(root string) string { return filepath.Join(root, "archive") }

// LockFile returns the lock file of the cron script name.
func LockFile(root, name string) string { return filepath.Join(LockDir(root), name+".lock") }

// RecipeDir returns the directory holding recipe textproto files.
func RecipeDir(root string) string { return filepath.Join(root, "recipes") }
