package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	evmlog "github.com/lamina-labs/evmsim/log"
	"github.com/lamina-labs/evmsim/simerrors"
)

// defaultQueueCapacity matches the upstream feed's own channel(30) call;
// kept tunable here rather than hardcoded since nothing about the number
// is load-bearing beyond "big enough to absorb a burst without blocking
// the producer".
const defaultQueueCapacity = 30

// Client drives both halves of the streaming state service: a one-shot
// HTTP snapshot query and a long-lived WebSocket feed of per-block state
// changes.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	queueCapacity int
	logger        *evmlog.Logger
}

// NewClient builds a Client against baseHost (host[:port], no scheme —
// matching the upstream feed's own bare-host configuration convention).
// queueCapacity <= 0 falls back to defaultQueueCapacity.
func NewClient(baseHost string, queueCapacity int) (*Client, error) {
	parsed, err := url.Parse("http://" + strings.TrimSuffix(baseHost, "/"))
	if err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamURIParsing, Err: err}
	}
	if queueCapacity <= 0 {
		queueCapacity = defaultQueueCapacity
	}
	return &Client{
		baseURL:       parsed,
		httpClient:    &http.Client{},
		queueCapacity: queueCapacity,
		logger:        evmlog.Default().Module("feed"),
	}, nil
}

// toQueryString renders filters the same way the upstream feed does:
// chain always present, tvl_gt and intertia_min_gt only when set. The
// "intertia" spelling is the wire protocol's, not a typo here.
func (p StateRequestParameters) toQueryString() string {
	chain := p.Chain
	if chain == "" {
		chain = "ethereum"
	}
	parts := []string{"chain=" + chain}
	if p.TVLGt != nil {
		parts = append(parts, "tvl_gt="+strconv.FormatUint(*p.TVLGt, 10))
	}
	if p.IntertiaMinGt != nil {
		parts = append(parts, "intertia_min_gt="+strconv.FormatUint(*p.IntertiaMinGt, 10))
	}
	return strings.Join(parts, "&")
}

// GetState performs the one-shot snapshot query against /contract_state.
func (c *Client) GetState(ctx context.Context, filters StateRequestParameters, body StateRequestBody) ([]ResponseAccount, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamFormatRequest, Err: err}
	}

	reqURL := fmt.Sprintf("%s://%s/contract_state?%s", c.baseURL.Scheme, c.baseURL.Host, filters.toQueryString())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamFormatRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamHTTPClient, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamParseResponse, Err: err}
	}

	var accounts []ResponseAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, &simerrors.StreamClientError{Kind: simerrors.StreamParseResponse, Err: err}
	}
	return accounts, nil
}

// RealtimeMessages dials the feed's WebSocket endpoint and returns a
// channel of decoded BlockStateChanges frames. The connection and decode
// loop run in a background goroutine; cancelling ctx closes the
// connection and terminates the goroutine. A dial failure is logged and
// the returned channel is closed immediately without being sent to — per
// the upstream feed's own behavior, a connection failure ends the feed
// task rather than retrying. A single frame that fails to decode is
// logged and dropped; the loop continues. A remote close frame ends the
// loop cleanly. If the consumer stops draining the channel, the next
// send blocks until ctx is cancelled or the consumer resumes.
func (c *Client) RealtimeMessages(ctx context.Context) <-chan BlockStateChanges {
	out := make(chan BlockStateChanges, c.queueCapacity)

	wsURL := fmt.Sprintf("ws://%s", c.baseURL.Host)
	go func() {
		defer close(out)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			c.logger.Error("failed to connect to websocket feed", "url", wsURL, "err", err)
			return
		}
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("failed to read websocket message", "err", err)
				return
			}
			if msgType != websocket.TextMessage {
				c.logger.Info("received an unexpected websocket message type", "type", msgType)
				continue
			}

			var update BlockStateChanges
			if err := json.Unmarshal(data, &update); err != nil {
				c.logger.Error("failed to deserialize feed message", "err", err)
				continue
			}

			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
