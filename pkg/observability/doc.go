/*
Package observability turns Grapher lifecycle events into Prometheus metrics
and structured log lines.

Hooks from Metrics.Hooks and LoggingHooks can be combined with Chain and
passed to the editor, the lockers and the iteration guard.
*/
package observability
