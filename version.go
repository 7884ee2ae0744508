package lspctl

// Heavily inspired by https://github.com/btcsuite/btcd/blob/master/version.go

import (
	"fmt"
	"strings"
)

// Commit stores the current commit hash of this build, this should be set
// using the -ldflags during compilation.
var Commit string

// semanticAlphabet is the allowed characters from the semantic versioning
// guidelines for pre-release version and build metadata strings.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (http://semver.org/).
const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0

	// appPreRelease MUST only contain characters from semanticAlphabet.
	appPreRelease = "beta"
)

// AgentName is the name of the software, used in log lines and as the
// prefix of generated transaction labels.
var AgentName = "lspctl"

// Version returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (http://semver.org/) and the commit it was
// built on.
func Version() string {
	return fmt.Sprintf("%s commit=%s", semanticVersion(), Commit)
}

// semanticVersion returns the SemVer part of the version.
func semanticVersion() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

	// The pre-release version is not appended if it contains invalid
	// characters.
	preRelease := normalizeVerString(appPreRelease)
	if preRelease != "" {
		version = fmt.Sprintf("%s-%s", version, preRelease)
	}

	return version
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines.
func normalizeVerString(str string) string {
	var result strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
