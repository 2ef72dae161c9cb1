package api

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// StreamCurrentTask opens the event stream that generates the current task of
// a profession. The caller must close the returned body.
func (c *Client) StreamCurrentTask(ctx context.Context, professionID int) (io.ReadCloser, error) {
	return c.openStream(ctx, http.MethodGet, currentTaskPath(professionID), nil)
}

// StreamSubmitAnswer submits answer and opens the event stream carrying the
// next task or the final report. The caller must close the returned body.
func (c *Client) StreamSubmitAnswer(ctx context.Context, taskID int, answer string) (io.ReadCloser, error) {
	return c.openStream(ctx, http.MethodPost, submitPath(taskID), answerRequest{answer})
}

// openStream never retries: a stream may have side effects on the server.
func (c *Client) openStream(ctx context.Context, method, path string, in any) (io.ReadCloser, error) {
	req, authed, err := c.newRequest(ctx, method, path, in, "text/event-stream")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: err}
	}
	if err := c.checkResponse(req, resp, authed); err != nil {
		resp.Body.Close()
		return nil, err
	}

	c.log.Debug("stream opened", zap.String("method", method), zap.String("path", path))
	return resp.Body, nil
}
