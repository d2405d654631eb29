// Package eventbus implements an in-process publish/subscribe event
// service: subscribers register by event type, by topic name, or by a
// topic regex, and are notified through a veto/deliver pipeline that
// tolerates slow or failing callbacks without disrupting the rest of
// a publication.
//
// The entry point is Service, constructed with New. Subscriptions may
// be strong (Subscribe/SubscribeVeto), weak (SubscribeWeak/
// SubscribeVetoWeak), or proxied (SubscribeProxy) for callers that do
// not want to extend a target's lifetime. A background reaper sweeps
// stale weak references once a configurable high-water mark is
// crossed; an optional timing monitor reports slow callbacks.
package eventbus
