package utils

import (
	"os"
	"os/user"
	"path"
	"strings"
)

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// ExpandPath replaces a leading ~ with the home directory
func ExpandPath(p string) string {
	if p == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return path.Join(HomeDir(), p[2:])
	}
	return p
}

// FindProjectRoot finds the project root directory
func FindProjectRoot(startDir string) string {
	// Start from the current directory and move up to find go.mod file
	dir := startDir
	for {
		if _, err := os.Stat(path.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parentDir := path.Dir(dir)
		if parentDir == dir {
			// Reached root but couldn't find go.mod
			return startDir
		}
		dir = parentDir
	}
}
