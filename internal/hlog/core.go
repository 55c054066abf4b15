package hlog

import "sync"

// Core is the sink a Logger writes entries to. Implementations decide
// filtering (Enabled) and formatting/output (Log).
type Core interface {
	Enabled(Level) bool
	Log(Entry) error
}

type Collector interface {
	Write(Entry) error
}

func NewCore(collector Collector) Core {
	return core{collector: collector}
}

type core struct {
	collector Collector
}

func (c core) Enabled(Level) bool { return true }

func (c core) Log(entry Entry) error {
	return c.collector.Write(entry)
}

type LevelEnablerFunc func(Level) bool

func NewLevelEnabler(c Core, enabler LevelEnablerFunc) Core {
	return levelEnabler{Core: c, enabler: enabler}
}

type levelEnabler struct {
	Core
	enabler LevelEnablerFunc
}

func (l levelEnabler) Enabled(lvl Level) bool {
	return l.enabler(lvl) && l.Core.Enabled(lvl)
}

func NewTee(cores ...Core) Core {
	return tee{cores: cores}
}

type tee struct {
	cores []Core
}

func (t tee) Log(entry Entry) error {
	var firstErr error
	for _, c := range t.cores {
		if err := c.Log(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t tee) Enabled(lvl Level) bool {
	for _, c := range t.cores {
		if c.Enabled(lvl) {
			return true
		}
	}
	return false
}

func NewLock(c Core) Core {
	return &lock{core: c}
}

type lock struct {
	core Core
	m    sync.Mutex
}

func (l *lock) Log(entry Entry) error {
	l.m.Lock()
	defer l.m.Unlock()
	return l.core.Log(entry)
}

func (l *lock) Enabled(lvl Level) bool {
	return l.core.Enabled(lvl)
}
