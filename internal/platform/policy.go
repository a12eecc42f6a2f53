// Package platform isolates the few behaviors that differ between POSIX
// and Windows hosts: hook file extension, executable bits and accepted
// interpreter lines. A Policy is chosen once at startup via Current.
package platform

import (
	"os"
	"runtime"
	"strings"
)

// Policy is the per-OS behavior used by the installer and token store.
type Policy interface {
	// Name identifies the platform ("posix" or "windows").
	Name() string
	// HookExtension is appended to hook file names.
	HookExtension() string
	// ApplyExecutablePermissions makes an installed hook runnable.
	ApplyExecutablePermissions(path string) error
	// AcceptsShebang reports whether a hook's first line is an allowed
	// interpreter declaration.
	AcceptsShebang(line string) bool
	// EnforcesFileModes reports whether POSIX permission bits are meaningful.
	EnforcesFileModes() bool
}

// HookMode is the mode applied to installed hooks on POSIX (rwxr-xr-x).
const HookMode os.FileMode = 0755

// PosixShebangs is the interpreter allow-list for POSIX hooks.
var PosixShebangs = []string{
	"#!/bin/bash",
	"#!/bin/sh",
	"#!/usr/bin/env python",
	"#!/usr/bin/env python3",
}

// Posix is the Policy for Linux, macOS and other Unix hosts.
type Posix struct {
	// Shebangs overrides PosixShebangs when non-nil.
	Shebangs []string
}

func (Posix) Name() string            { return "posix" }
func (Posix) HookExtension() string   { return "" }
func (Posix) EnforcesFileModes() bool { return true }

// ApplyExecutablePermissions chmods path to 0755.
func (Posix) ApplyExecutablePermissions(path string) error {
	return os.Chmod(path, HookMode)
}

// AcceptsShebang requires an exact match against the allow-list after
// trimming trailing whitespace (including a CR from CRLF content).
func (p Posix) AcceptsShebang(line string) bool {
	allowed := p.Shebangs
	if allowed == nil {
		allowed = PosixShebangs
	}
	line = strings.TrimRight(line, " \t\r")
	for _, s := range allowed {
		if line == s {
			return true
		}
	}
	return false
}

// Windows is the Policy for Windows hosts. Hooks get a .bat extension.
type Windows struct{}

func (Windows) Name() string            { return "windows" }
func (Windows) HookExtension() string   { return ".bat" }
func (Windows) EnforcesFileModes() bool { return false }

// ApplyExecutablePermissions is a no-op; Windows has no executable bit.
func (Windows) ApplyExecutablePermissions(string) error { return nil }

// AcceptsShebang accepts batch files starting with "@echo off" and any
// "#!" line, since Git for Windows runs hooks through its bundled shell.
func (Windows) AcceptsShebang(line string) bool {
	line = strings.TrimSpace(line)
	return strings.EqualFold(line, "@echo off") || strings.HasPrefix(line, "#!")
}

// Current returns the Policy for the running OS.
func Current() Policy {
	return ForOS(runtime.GOOS)
}

// ForOS returns the Policy for a GOOS value.
func ForOS(goos string) Policy {
	if goos == "windows" {
		return Windows{}
	}
	return Posix{}
}
