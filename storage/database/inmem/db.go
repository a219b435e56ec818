package inmemdb

import (
	"sync"

	"github.com/trezcool/trainings/core/session"
)

type (
	sigKey struct {
		slotID          string
		enrollmentToken string
	}

	tables struct {
		sessions    map[string]session.Session
		slots       map[string]session.Slot
		slotOrder   []string
		enrollments map[string]session.Enrollment
		enrOrder    []string
		signatures  map[sigKey]session.Signature
		sigOrder    []sigKey
	}

	// DB is a process-local store. Units of work are serialized by its lock.
	DB struct {
		sync.RWMutex
		t *tables
	}
)

func Open() *DB {
	return &DB{t: &tables{
		sessions:    make(map[string]session.Session),
		slots:       make(map[string]session.Slot),
		enrollments: make(map[string]session.Enrollment),
		signatures:  make(map[sigKey]session.Signature),
	}}
}

// clone copies every table, so that a failed unit of work can be rolled back.
func (t *tables) clone() *tables {
	c := &tables{
		sessions:    make(map[string]session.Session, len(t.sessions)),
		slots:       make(map[string]session.Slot, len(t.slots)),
		slotOrder:   append([]string(nil), t.slotOrder...),
		enrollments: make(map[string]session.Enrollment, len(t.enrollments)),
		enrOrder:    append([]string(nil), t.enrOrder...),
		signatures:  make(map[sigKey]session.Signature, len(t.signatures)),
		sigOrder:    append([]sigKey(nil), t.sigOrder...),
	}
	for k, s := range t.sessions {
		s.History = append([]session.StatusChange(nil), s.History...)
		c.sessions[k] = s
	}
	for k, sl := range t.slots {
		c.slots[k] = sl
	}
	for k, e := range t.enrollments {
		c.enrollments[k] = e
	}
	for k, sig := range t.signatures {
		c.signatures[k] = sig
	}
	return c
}
