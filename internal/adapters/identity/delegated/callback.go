package delegated

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

const callbackPath = "/callback"

var (
	ErrStateMismatch = errors.New("callback state mismatch")
	ErrMissingState  = errors.New("expected state is required")
	ErrMissingCode   = errors.New("callback carried no authorization code")
)

// CallbackError is an error reported by the identity provider on the
// redirect, such as access_denied.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description == "" {
		return "identity provider returned " + e.Code
	}
	return "identity provider returned " + e.Code + ": " + e.Description
}

// Rejected reports whether the user declined the request.
func (e *CallbackError) Rejected() bool {
	return e.Code == "access_denied"
}

// CallbackServer receives the single redirect that ends a delegated login.
type CallbackServer struct {
	expectedState string
	listener      net.Listener
	server        *http.Server
	resultCh      chan callbackResult
	resultOnce    sync.Once
	closeOnce     sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func StartCallbackServer(listenAddr string, expectedState string) (*CallbackServer, error) {
	if expectedState == "" {
		return nil, ErrMissingState
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	cb := &CallbackServer{
		expectedState: expectedState,
		listener:      listener,
		resultCh:      make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, cb.handleCallback)
	cb.server = &http.Server{Handler: mux}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

func (c *CallbackServer) RedirectURI() string {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d%s", tcpAddr.Port, callbackPath)
	}
	return "http://localhost" + callbackPath
}

// WaitForCode blocks until the redirect arrives or ctx is done. The server
// is closed on return.
func (c *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	defer func() { _ = c.Close() }()

	select {
	case result := <-c.resultCh:
		return result.code, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *CallbackServer) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.server.Close()
	})
	return closeErr
}

func (c *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("state") != c.expectedState {
		c.trySendResult(callbackResult{err: ErrStateMismatch})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	if code := query.Get("error"); code != "" {
		c.trySendResult(callbackResult{err: &CallbackError{Code: code, Description: query.Get("error_description")}})
		http.Error(w, "sign-in was not completed", http.StatusBadRequest)
		return
	}

	authCode := query.Get("code")
	if authCode == "" {
		c.trySendResult(callbackResult{err: ErrMissingCode})
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	c.trySendResult(callbackResult{code: authCode})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Wallet connected. You can close this window and return to PollRush."))
}

func (c *CallbackServer) trySendResult(result callbackResult) {
	c.resultOnce.Do(func() {
		c.resultCh <- result
	})
}
