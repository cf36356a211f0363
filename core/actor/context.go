package actor

import (
	"context"
	"log/slog"
)

// askChainKey stores the mailboxes that are synchronously waiting on the
// message currently executing, innermost last.
type askChainKey struct{}

// Context is passed to every hook and message of an actor. It is a
// context.Context that is cancelled once the actor has stopped.
type Context struct {
	context.Context
	actor *Actor
	chain []*Mailbox
}

func (c *Context) Value(key any) any {
	if _, ok := key.(askChainKey); ok {
		return c.chain
	}
	return c.Context.Value(key)
}

// ID returns the actor's id.
func (c *Context) ID() string { return c.actor.id }

func (c *Context) Log() *slog.Logger { return c.actor.log }

// Self returns the handle of the executing actor.
func (c *Context) Self() Handle { return c.actor.Self() }

// Caller returns the handle of the actor that launched this one, if any.
func (c *Context) Caller() Handle { return c.actor.caller }

// Behavior returns the executing actor's behavior.
func (c *Context) Behavior() Behavior { return c.actor.behavior }

// Stop clears the running flag. The loop exits after the current message.
func (c *Context) Stop() { c.actor.stopRunning() }

// FlushSelf drops every message still buffered in the actor's own mailbox
// and returns them.
func (c *Context) FlushSelf() []Message { return c.actor.mailbox.Flush() }

// Schedule runs f outside of the mailbox loop. The actor waits for scheduled
// work before running OnStop. f must not touch behavior state; send a message
// to Self() instead.
func (c *Context) Schedule(f func()) { c.actor.sched.Schedule(f) }

var _ context.Context = (*Context)(nil)
