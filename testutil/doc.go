// Package testutil provides testing utilities for entigo.
//
// This package is intended for use in tests only. It provides a canonical
// person model, document and response builders, and a scripted search
// backend with canned per-index responses.
package testutil
