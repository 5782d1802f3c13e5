package main

import "fmt"

// validLogLevels are the values --log-level accepts, per SPEC_FULL.md §6.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

func validateLogLevel(level string) error {
	if !validLogLevels[level] {
		return fmt.Errorf("que-locker: --log-level must be one of debug,info,warn,error,fatal, got %q", level)
	}
	return nil
}
