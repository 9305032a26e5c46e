package aria2

import "context"

// stoppedWindow caps how many entries a single tellWaiting/tellStopped returns.
const stoppedWindow = 1000

// AddURI queues a download and returns its gid.
func (c *Client) AddURI(ctx context.Context, uris []string, opts AddOptions) (string, error) {
	var gid string
	err := c.callInto(ctx, &gid, "addUri", uris, opts.params())
	return gid, err
}

// Pause pauses an active or waiting task.
func (c *Client) Pause(ctx context.Context, gid string) error {
	return c.callInto(ctx, nil, "pause", gid)
}

// Unpause resumes a paused task.
func (c *Client) Unpause(ctx context.Context, gid string) error {
	return c.callInto(ctx, nil, "unpause", gid)
}

// ForceRemove stops a task immediately, releasing its file handles.
func (c *Client) ForceRemove(ctx context.Context, gid string) error {
	return c.callInto(ctx, nil, "forceRemove", gid)
}

// RemoveDownloadResult clears a stopped task from the daemon's memory.
func (c *Client) RemoveDownloadResult(ctx context.Context, gid string) error {
	return c.callInto(ctx, nil, "removeDownloadResult", gid)
}

// TellActive lists downloading tasks.
func (c *Client) TellActive(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := c.callInto(ctx, &tasks, "tellActive")
	return tasks, err
}

// TellWaiting lists waiting and paused tasks.
func (c *Client) TellWaiting(ctx context.Context, offset, num int) ([]Task, error) {
	var tasks []Task
	err := c.callInto(ctx, &tasks, "tellWaiting", offset, num)
	return tasks, err
}

// TellStopped lists completed, errored, and removed tasks still in memory.
func (c *Client) TellStopped(ctx context.Context, offset, num int) ([]Task, error) {
	var tasks []Task
	err := c.callInto(ctx, &tasks, "tellStopped", offset, num)
	return tasks, err
}

// FetchAll returns active, waiting, then stopped tasks. Any failing call
// fails the whole fetch.
func (c *Client) FetchAll(ctx context.Context) ([]Task, error) {
	active, err := c.TellActive(ctx)
	if err != nil {
		return nil, err
	}
	waiting, err := c.TellWaiting(ctx, 0, stoppedWindow)
	if err != nil {
		return nil, err
	}
	stopped, err := c.TellStopped(ctx, 0, stoppedWindow)
	if err != nil {
		return nil, err
	}
	all := make([]Task, 0, len(active)+len(waiting)+len(stopped))
	all = append(all, active...)
	all = append(all, waiting...)
	return append(all, stopped...), nil
}

// GetVersion doubles as the reachability probe.
func (c *Client) GetVersion(ctx context.Context) (Version, error) {
	var v Version
	err := c.callInto(ctx, &v, "getVersion")
	return v, err
}

// Shutdown asks the daemon to exit after finishing its bookkeeping.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.callInto(ctx, nil, "shutdown")
}

// ForceShutdown asks the daemon to exit immediately.
func (c *Client) ForceShutdown(ctx context.Context) error {
	return c.callInto(ctx, nil, "forceShutdown")
}
