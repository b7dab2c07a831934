package kernel

// Send delivers payload to server and blocks until the server releases it.
// It returns the server's reply code, or MsgReset if the server terminated
// before releasing.
func (c *Context) Send(server Handle, payload any) (Msg, error) {
	k := c.k
	t := c.t
	k.enter(t)
	srv, err := k.lookupS(server)
	switch {
	case err != nil:
	case srv == t:
		err = ErrSendSelf
	case srv.state == StateTerminated:
		err = ErrTerminated
	}
	if err != nil {
		k.mu.Unlock()
		return 0, err
	}

	t.payload = payload
	t.msgServer = srv.ref
	t.msgActive = false
	k.qInsertPrio(&srv.msgQueue, t)
	if srv.state == StateReceiving {
		k.wakeS(srv, MsgOK)
	}
	msg := k.goSleepS(t, StateSending)
	t.payload = nil
	t.msgServer = nilRef
	t.msgActive = false
	k.mu.Unlock()
	return msg, nil
}

// WaitMessage blocks until a sender is pending and returns the highest
// priority one together with its payload. The sender stays blocked until
// Release.
func (c *Context) WaitMessage() (Handle, any) {
	k := c.k
	t := c.t
	k.enter(t)
	for t.msgQueue.head == nilRef {
		k.goSleepS(t, StateReceiving)
	}
	h, p := k.takeMessageS(t)
	k.mu.Unlock()
	return h, p
}

// PollMessage is WaitMessage without blocking.
func (c *Context) PollMessage() (Handle, any, bool) {
	k := c.k
	t := c.t
	k.enter(t)
	if t.msgQueue.head == nilRef {
		k.mu.Unlock()
		return Handle{}, nil, false
	}
	h, p := k.takeMessageS(t)
	k.mu.Unlock()
	return h, p, true
}

func (k *Kernel) takeMessageS(srv *thread) (Handle, any) {
	s := k.qPopFirst(&srv.msgQueue)
	s.msgActive = true
	return handleOf(s), s.payload
}

// Release wakes sender, whose message the caller received, with code as
// the result of its Send.
func (c *Context) Release(sender Handle, code Msg) error {
	k := c.k
	t := c.t
	k.enter(t)
	s, err := k.lookupS(sender)
	if err == nil && (s.state != StateSending || !s.msgActive || s.msgServer != t.ref) {
		err = ErrNotPending
	}
	if err != nil {
		k.mu.Unlock()
		return err
	}
	k.wakeS(s, code)
	k.rescheduleS(t)
	k.mu.Unlock()
	return nil
}
