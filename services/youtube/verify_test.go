package youtube

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyOK(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodHead, req.Method)
		return htmlResponse(200, ""), nil
	})

	res := c.Verify(context.Background(), watchURL)
	assert.True(t, res.OK)
	assert.Equal(t, "OK", res.Message)
}

func TestVerifyInvalidURLShape(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		t.Fatal("invalid URLs must not be probed")
		return nil, nil
	})

	res := c.Verify(context.Background(), "https://vimeo.com/12345")
	assert.False(t, res.OK)
	assert.Equal(t, "Invalid YouTube URL format", res.Message)
}

func TestVerifyNotFound(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(404, ""), nil
	})

	res := c.Verify(context.Background(), watchURL)
	assert.False(t, res.OK)
	assert.Equal(t, "Video not found (404)", res.Message)
}

func TestVerifyOtherStatus(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(429, ""), nil
	})

	res := c.Verify(context.Background(), watchURL)
	assert.False(t, res.OK)
	assert.Equal(t, "HTTP 429", res.Message)
}

func TestVerifyTransportError(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})

	res := c.Verify(context.Background(), watchURL)
	assert.False(t, res.OK)
	assert.Equal(t, "connection error", res.Message)
}

func TestCheckRestrictionDetectsAgeGate(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, `<html>Sign in to confirm your age</html>`), nil
	})

	res := c.CheckRestriction(context.Background(), watchURL)
	assert.True(t, res.Restricted)
	assert.Equal(t, "Age-restricted content detected", res.Message)
}

func TestCheckRestrictionDetectsUnavailable(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, `<html>This is a private video</html>`), nil
	})

	res := c.CheckRestriction(context.Background(), watchURL)
	assert.True(t, res.Restricted)
	assert.Equal(t, "Content not publicly available", res.Message)
}

func TestCheckRestrictionCleanPage(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, `<html><title>Some Movie - YouTube</title></html>`), nil
	})

	res := c.CheckRestriction(context.Background(), watchURL)
	assert.False(t, res.Restricted)
	assert.Equal(t, "No age restrictions detected", res.Message)
}

func TestCheckRestrictionNetworkFailureNotRestricted(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})

	res := c.CheckRestriction(context.Background(), watchURL)
	assert.False(t, res.Restricted)
	assert.Contains(t, res.Message, "connection error")
}

func TestCheckRestrictionHTTPErrorNotRestricted(t *testing.T) {
	c := fakeClient(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(503, ""), nil
	})

	res := c.CheckRestriction(context.Background(), watchURL)
	assert.False(t, res.Restricted)
	assert.Contains(t, res.Message, "HTTP 503")
}
