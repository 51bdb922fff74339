/*
Package session serializes access to live conversation state.

A Manager hands out one in-process mutex per session ID, reference-counted so
idle sessions cost nothing, and can layer a DistributedLocker on top when
several replicas share one Redis.
*/
package session
