package stm

// entry is one log record for one TVar: the value observed when the TVar
// was first touched this attempt, the tentative value to commit, and
// whether the TVar itself was allocated during this attempt.
type entry struct {
	tvar     *TVar
	oldValue int
	newValue int
	isFresh  bool
}

// A Log is the per-attempt record of every TVar an atomic attempt has
// touched, keyed by TVar id so that "at most one entry per TVar id" is an
// invariant the map's own keying enforces; assertUnique additionally walks
// the map before and after each of read, write and newLocalTVar. newLog,
// clone, read, write, and newLocalTVar are the only ways to produce or
// extend a Log; every one of them is pure with respect to the TVars it
// didn't touch.
type Log struct {
	entries map[uint64]*entry
	ids     freshIDs
}

// freshIDs is the id source a Log's newLocalTVar allocates from.
type freshIDs interface {
	Next() uint64
}

func newLog(ids freshIDs) *Log {
	return &Log{entries: make(map[uint64]*entry), ids: ids}
}

// clone returns a Log with an independent entries map holding copies of
// every entry in l, so mutating the clone never affects l. Used by orElse
// to give each alternative its own working log derived from the parent.
func (l *Log) clone() *Log {
	c := &Log{entries: make(map[uint64]*entry, len(l.entries)), ids: l.ids}
	for id, e := range l.entries {
		copy := *e
		c.entries[id] = &copy
	}
	return c
}

func (l *Log) assertUnique() {
	seen := make(map[uint64]bool, len(l.entries))
	for id, e := range l.entries {
		if id != e.tvar.id {
			panic("stm: log entry keyed under the wrong TVar id")
		}
		if seen[id] {
			duplicateEntryPanic(id)
		}
		seen[id] = true
	}
}

// read returns the value t would see if read right now within this log's
// attempt: the logged newValue if t has an entry, otherwise the cell's
// current value (which also creates the entry).
func (l *Log) read(t *TVar) int {
	l.assertUnique()
	defer l.assertUnique()
	if e, ok := l.entries[t.id]; ok {
		return e.newValue
	}
	v := t.cell.value
	l.entries[t.id] = &entry{tvar: t, oldValue: v, newValue: v, isFresh: false}
	return v
}

// write records that t should hold v when this attempt commits.
func (l *Log) write(t *TVar, v int) {
	l.assertUnique()
	defer l.assertUnique()
	if e, ok := l.entries[t.id]; ok {
		e.newValue = v
		return
	}
	old := t.cell.value
	l.entries[t.id] = &entry{tvar: t, oldValue: old, newValue: v, isFresh: false}
}

// newLocalTVar allocates a brand new TVar, seeds it with init, and logs it
// as fresh: no other attempt could ever have observed its cell, so its
// entry is trivially valid.
func (l *Log) newLocalTVar(init int) *TVar {
	l.assertUnique()
	defer l.assertUnique()
	id := l.ids.Next()
	t := &TVar{id: id, cell: &cell{value: init}}
	l.entries[id] = &entry{tvar: t, oldValue: init, newValue: init, isFresh: true}
	return t
}

// isValid reports whether every entry's oldValue still matches its TVar's
// current cell value. A fresh entry is trivially valid since its oldValue
// was set to the cell's own initial value and nothing else could have
// written to it.
func (l *Log) isValid() bool {
	for _, e := range l.entries {
		if e.tvar.cell.value != e.oldValue {
			return false
		}
	}
	return true
}

// hasChanged reports whether any entry's TVar current value differs from
// the value observed when the attempt began touching it. Used by the
// retry wait loop: an attempt waits until this becomes true.
func (l *Log) hasChanged() bool {
	for _, e := range l.entries {
		if e.tvar.cell.value != e.oldValue {
			return true
		}
	}
	return false
}

// commit writes every entry's newValue into its TVar's shared cell. Must
// only be called after isValid returns true, and must not yield — the
// cooperative scheduler guarantees no other task can observe a
// half-applied commit because nothing in this function blocks.
func (l *Log) commit() {
	for _, e := range l.entries {
		e.tvar.cell.value = e.newValue
	}
}
