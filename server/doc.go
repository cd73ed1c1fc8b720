// Package server exposes the game over HTTP. Session operations map to
// httprouter endpoints and outbound game events are streamed to subscribed
// clients over per-session websockets via an EventHub that implements
// core.Sink.
package server
