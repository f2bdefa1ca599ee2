package service

import "context"

// Notifier tells live subscribers that a tenant's collections changed.
// It is called after commit; failures are logged, never returned to callers.
type Notifier interface {
	NotifyChanged(ctx context.Context, tenantID string, tables ...string) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, tenantID string, tables ...string) error

func (f NotifierFunc) NotifyChanged(ctx context.Context, tenantID string, tables ...string) error {
	return f(ctx, tenantID, tables...)
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) NotifyChanged(context.Context, string, ...string) error { return nil }
