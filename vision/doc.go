// Package vision defines the contract for the external vision analyzer that
// extracts guessing candidates from a submitted image. The orchestrator never
// inspects candidate attributes beyond passing them through; everything about
// feature extraction stays inside the analyzer implementation.
package vision
