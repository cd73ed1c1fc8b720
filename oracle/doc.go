// Package oracle defines the provider-agnostic contract for the reasoning
// oracle consulted during the question/answer loop.
//
// Core goals:
//   - Keep the request/response shapes minimal and transport independent
//   - Model the oracle's reply as a closed sum (question | guess) with
//     validation at the boundary; any other shape is a protocol error,
//     never silently coerced
//   - Facilitate lightweight scripting for tests (MockOracle)
//
// Providers (e.g. OpenAI, Anthropic) implement the Oracle interface from this
// package so the orchestrator remains decoupled from vendor SDKs.
package oracle
