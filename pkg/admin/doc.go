// Package admin backs the sales dashboard: filtering session records, summary
// counters and the lead CSV export.
package admin
