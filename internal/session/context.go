package session

import (
	"fmt"
	"time"
)

// Context is the application context injected into the capture and
// submission workflows. It owns the hydrated session state; nothing else
// mutates it. Init hydrates from the store, Logout tears down.
type Context struct {
	store *Store
	state State
	now   func() time.Time
}

// Init hydrates an application context from the store. A stale usage month
// is reset on the spot.
func Init(store *Store) (*Context, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("hydrating session: %w", err)
	}

	ctx := &Context{store: store, state: state, now: time.Now}
	ctx.rolloverIfStale()
	return ctx, nil
}

func (c *Context) rolloverIfStale() {
	month := c.now().Format("2006-01")
	if c.state.Month != month {
		c.state.Month = month
		c.state.GradesUsed = 0
	}
}

// Token returns the auth credential, empty when unauthenticated.
func (c *Context) Token() string {
	return c.state.Token
}

// SetToken stores a new credential and persists it.
func (c *Context) SetToken(token string) error {
	c.state.Token = token
	return c.store.Save(c.state)
}

// CanGrade reports whether the monthly limit still allows a single-card
// grading run. A zero limit means unlimited.
func (c *Context) CanGrade() bool {
	c.rolloverIfStale()
	return c.state.MonthlyLimit == 0 || c.state.GradesUsed < c.state.MonthlyLimit
}

// GradesRemaining returns how many grades are left this month, or -1 for
// unlimited.
func (c *Context) GradesRemaining() int {
	c.rolloverIfStale()
	if c.state.MonthlyLimit == 0 {
		return -1
	}
	remaining := c.state.MonthlyLimit - c.state.GradesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetMonthlyLimit updates the plan limit and persists it.
func (c *Context) SetMonthlyLimit(limit int) error {
	c.state.MonthlyLimit = limit
	return c.store.Save(c.state)
}

// RecordGrade counts one completed grading run against the monthly limit.
func (c *Context) RecordGrade() error {
	c.rolloverIfStale()
	c.state.GradesUsed++
	return c.store.Save(c.state)
}

// Logout clears both the in-memory and persisted session.
func (c *Context) Logout() error {
	c.state = State{}
	return c.store.Clear()
}
