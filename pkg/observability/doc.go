/*
Package observability exposes Prometheus metrics for the chat service.

Metrics owns a private registry so tests can create as many instances as they
like. Hooks plugs question and outcome counters into the flow engine; the
Observe* methods cover knowledge lookups, persistence and notifications.
*/
package observability
