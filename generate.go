package easel

import "context"

// Generate runs a generation-collaborator call off the interaction loop
// and applies the result. IntentUpdate replaces the target item's source
// without changing its ID; IntentCreate spawns a new image item at the
// viewport's visual center. done (optional) receives the collaborator
// error, if any, for inline display in the generation panel.
//
// The target may be deleted while the call is in flight; the completion
// checks it still exists before mutating anything.
func (c *Canvas) Generate(ctx context.Context, gen Generator, req GenerateRequest, target *Item, done func(err error)) {
	go func() {
		imageURL, err := gen.GenerateImage(ctx, req)
		if err != nil {
			c.reportError(err)
			if done != nil {
				done(err)
			}
			return
		}

		if req.Intent == IntentUpdate && target != nil {
			c.mu.Lock()
			alive := !target.IsDisposed() && c.contains(target)
			c.mu.Unlock()
			if alive {
				c.ReplaceSource(target, imageURL)
			}
		} else {
			c.mu.RLock()
			center := c.viewport.Center()
			sx, sy := c.viewport.WorldToScreen(center.X, center.Y)
			c.mu.RUnlock()
			c.DropImage(sx, sy, imageURL)
		}
		if done != nil {
			done(nil)
		}
	}()
}
