package metrics

import "fmt"

// Target identifies one account to collect: a (platform, handle) pair
// plus a priority flag. Immutable once dispatched into a batch; the
// coordinator references targets, it never owns or mutates them.
type Target struct {
	platform string
	handle   string
	isCore   bool
}

func NewTarget(platform string, handle string, isCore bool) Target {
	return Target{
		platform: platform,
		handle:   handle,
		isCore:   isCore,
	}
}

func (t Target) Platform() string {
	return t.platform
}

func (t Target) Handle() string {
	return t.handle
}

func (t Target) IsCore() bool {
	return t.isCore
}

// Key is the stable identity used by history, health, and dedup lookups.
func (t Target) Key() string {
	return t.platform + "/" + t.handle
}

// Label is the human-readable form used in progress reporting.
func (t Target) Label() string {
	return fmt.Sprintf("%s:@%s", t.platform, t.handle)
}
