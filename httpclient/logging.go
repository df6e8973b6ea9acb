package httpclient

import (
	nethttp "net/http"
	"strconv"

	"github.com/gaborage/restbricks/rest"
)

const (
	logRequestMessage  = "REST client request"
	logResponseMessage = "REST client response"
)

// logRequest logs the outgoing request at info and, when payload logging is
// on, its headers and a body preview at debug. Header values pass through
// the logger's sensitive data filter.
func (c *client) logRequest(req *nethttp.Request, body []byte, requestID string) {
	logEvent := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)

	if len(req.Header) > 0 {
		logEvent = logEvent.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		logEvent = logEvent.Int("body_size", len(body))
	}
	logEvent.Msg(logRequestMessage)

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.payloadPreview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", map[string][]string(req.Header)).
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(logRequestMessage)
}

// logResponse logs the incoming response. headers are the raw response
// headers, which are logged even when the caller asked to discard them.
func (c *client) logResponse(resp *rest.Response, headers nethttp.Header, callCount int64, requestID string) {
	logEvent := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.Status).
		Dur("elapsed", resp.Elapsed).
		Int64("call_count", callCount).
		Str("request_id", requestID)

	if len(resp.Body) > 0 {
		logEvent = logEvent.Int("body_size", len(resp.Body))
	}
	logEvent.Msg(logResponseMessage)

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.payloadPreview(resp.Body)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.Status).
		Str("request_id", requestID).
		Interface("headers", map[string][]string(headers)).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(logResponseMessage)
}

func (c *client) payloadPreview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}
