// Package healthcheck implements periodic health probing for pool members.
// It monitors backend availability, updates their health status based on
// HTTP health endpoint responses and emits health-change metric events.
package healthcheck
