// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// AppBuildInfo is the version stamp linked into a binary with -ldflags.
// The zero value reports every field as unknown.
type AppBuildInfo struct {
	version string
	date    string
	commit  string
}

func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	return AppBuildInfo{version: version, date: date, commit: commit}
}

func (a AppBuildInfo) BuildVersion() string { return a.version }

func (a AppBuildInfo) BuildDate() string { return a.date }

func (a AppBuildInfo) BuildCommit() string { return a.commit }

// String renders the stamp as "version (commit, date)", with "N/A" for
// missing parts.
func (a AppBuildInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", orNA(a.version), orNA(a.commit), orNA(a.date))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
