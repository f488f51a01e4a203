// Package config reads the service configuration.
package config

import (
	"io"
	"time"
)

// Config defines the typed getters used across the service.
//
// Missing keys yield the zero value of the requested type.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetUint16(key string) uint16
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads a value stored as <element1>,<element2>,... Empty elements are dropped.
	GetArray(key string) []string

	// UnmarshalKey decodes the subtree at key into out (mapstructure tags).
	UnmarshalKey(key string, out any) error
}
