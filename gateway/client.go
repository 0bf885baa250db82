// Package gateway talks to the ledger gateway: the HTTP script that appends
// to, deletes from and lists the sales sheet.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"stall/models"
)

// Reply is the body every gateway write answers with.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type listReply struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Code    int                `json:"code"`
	Data    []models.LedgerRow `json:"data"`
}

type appendRequest struct {
	models.LedgerRecord
	SheetURL  string `json:"sheetUrl"`
	SheetName string `json:"sheetName"`
	Token     string `json:"token"`
}

type deleteRequest struct {
	Name      string `json:"name"`
	SheetURL  string `json:"sheetUrl"`
	SheetName string `json:"sheetName"`
	Token     string `json:"token"`
}

type Client struct {
	http   *http.Client
	loc    *time.Location
	logger *slog.Logger
}

// NewClient builds a client. A zero timeout leaves requests bounded only by
// the caller's context.
func NewClient(timeout time.Duration, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		loc:    loc,
		logger: logger,
	}
}

// Rows lists the sheet as header-keyed rows. The gateway may answer with an
// envelope or with a bare array.
func (c *Client) Rows(ctx context.Context, conn models.Connection) ([]models.LedgerRow, error) {
	if missing := listMissing(conn); len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	target, err := url.Parse(conn.ScriptURL)
	if err != nil {
		return nil, NewValidationError("invalid script url: %v", err)
	}
	q := target.Query()
	q.Set("sheetUrl", conn.SheetURL)
	q.Set("sheetName", conn.SheetName)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}

	body, err := c.do(req, "list")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []models.LedgerRow
		if err := decode(trimmed, &rows); err != nil {
			return nil, &TransportError{Op: "list", Err: err}
		}
		return rows, nil
	}

	var reply listReply
	if err := decode(trimmed, &reply); err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}
	if !reply.Success {
		return nil, c.upstream("list", &UpstreamError{Code: reply.Code, Message: reply.Message})
	}
	return reply.Data, nil
}

// Events lists the sheet and converts its rows into sale events.
func (c *Client) Events(ctx context.Context, conn models.Connection) ([]models.SaleEvent, error) {
	rows, err := c.Rows(ctx, conn)
	if err != nil {
		return nil, err
	}
	return EventsFromRows(rows, c.loc, c.logger), nil
}

// Append adds one record at the bottom of the sheet.
func (c *Client) Append(ctx context.Context, conn models.Connection, rec models.LedgerRecord) (Reply, error) {
	if missing := conn.Missing(); len(missing) > 0 {
		return Reply{}, &ConfigError{Missing: missing}
	}
	if missing := rec.Missing(); len(missing) > 0 {
		return Reply{}, NewValidationError("invalid request: missing %v", missing)
	}

	return c.post(ctx, conn.ScriptURL, "post", appendRequest{
		LedgerRecord: rec,
		SheetURL:     conn.SheetURL,
		SheetName:    conn.SheetName,
		Token:        conn.ScriptToken,
	})
}

// DeleteLast removes the most recent row whose name column equals name.
func (c *Client) DeleteLast(ctx context.Context, conn models.Connection, name string) (Reply, error) {
	if missing := conn.Missing(); len(missing) > 0 {
		return Reply{}, &ConfigError{Missing: missing}
	}
	if name == "" {
		return Reply{}, NewValidationError("invalid request: missing name")
	}

	return c.post(ctx, conn.ScriptURL, "delete", deleteRequest{
		Name:      name,
		SheetURL:  conn.SheetURL,
		SheetName: conn.SheetName,
		Token:     conn.ScriptToken,
	})
}

func (c *Client) post(ctx context.Context, scriptURL, method string, payload any) (Reply, error) {
	target, err := url.Parse(scriptURL)
	if err != nil {
		return Reply{}, NewValidationError("invalid script url: %v", err)
	}
	q := target.Query()
	q.Set("method", method)
	target.RawQuery = q.Encode()

	buf, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(buf))
	if err != nil {
		return Reply{}, &TransportError{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, method)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := decode(body, &reply); err != nil {
		return Reply{}, &TransportError{Op: method, Err: err}
	}
	if !reply.Success {
		return reply, c.upstream(method, &UpstreamError{Code: reply.Code, Message: reply.Message})
	}
	return reply, nil
}

// do sends req and returns the body of a 2xx answer.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("ledger gateway unreachable", "op", op, "error", err)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var reply Reply
		if err := json.Unmarshal(body, &reply); err != nil || reply.Message == "" {
			reply.Message = "could not parse the error response from the ledger gateway"
		}
		return nil, c.upstream(op, &UpstreamError{Status: res.StatusCode, Code: res.StatusCode, Message: reply.Message})
	}
	return body, nil
}

func (c *Client) upstream(op string, err *UpstreamError) error {
	c.logger.Warn("ledger gateway reported failure", "op", op, "status", err.Status, "code", err.Code, "message", err.Message)
	return err
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func listMissing(conn models.Connection) []string {
	var missing []string
	if conn.SheetURL == "" {
		missing = append(missing, "sheetUrl")
	}
	if conn.SheetName == "" {
		missing = append(missing, "sheetName")
	}
	if conn.ScriptURL == "" {
		missing = append(missing, "scriptUrl")
	}
	return missing
}
