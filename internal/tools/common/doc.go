// Package common provides shared helpers for MCP tool packages: the
// instrumentation wrapper every tool handler is registered through and
// argument helpers used for span and audit attributes.
package common
