package firerest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// IClient defines the document-level operations against the Firestore REST
// API. Data moves through it as native objects; the codec handles the wire
// representation on both sides.
type IClient interface {
	Create(ctx context.Context, collectionPath string, data map[string]interface{}, documentID ...string) (*Document, error)
	Get(ctx context.Context, documentPath string) (*Document, error)
	Set(ctx context.Context, documentPath string, data map[string]interface{}) (*Document, error)
	Update(ctx context.Context, documentPath string, data map[string]interface{}, fields ...string) (*Document, error)
	Delete(ctx context.Context, documentPath string) error
	RunQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error)
	RunCollectionGroupQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error)
	ListCollectionIDs(ctx context.Context, documentPath string) ([]string, error)
	GetConnection() IConnection
	Close() error
}

// Client performs authenticated calls against the Firestore REST API.
type Client struct {
	conn IConnection
}

// NewClient validates the connection and returns a Client bound to it.
func NewClient(conn IConnection) (*Client, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) GetConnection() IConnection {
	return c.conn
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Create writes a new document into a collection. When no document ID is
// supplied a random one is generated client-side, mirroring the SDK's
// auto-ID behavior. Encoding failures abort before any network call.
func (c *Client) Create(ctx context.Context, collectionPath string, data map[string]interface{}, documentID ...string) (*Document, error) {
	fields, err := EncodeDocument(data)
	if err != nil {
		return nil, err
	}

	id := ""
	if len(documentID) > 0 {
		id = documentID[0]
	}
	if id == "" {
		id = uuid.NewString()
	}

	endpoint := fmt.Sprintf("%s/%s?documentId=%s",
		c.conn.GetConfig().documentsBase(), collectionPath, url.QueryEscape(id))
	return c.writeDocument(ctx, http.MethodPost, endpoint, fields)
}

// Get reads a single document by its path relative to the documents root,
// e.g. "users/alice".
func (c *Client) Get(ctx context.Context, documentPath string) (*Document, error) {
	endpoint := c.conn.GetConfig().documentsBase() + "/" + documentPath
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.parseDocument(body)
}

// Set writes the full contents of a document, creating it when absent.
func (c *Client) Set(ctx context.Context, documentPath string, data map[string]interface{}) (*Document, error) {
	fields, err := EncodeDocument(data)
	if err != nil {
		return nil, err
	}
	endpoint := c.conn.GetConfig().documentsBase() + "/" + documentPath
	return c.writeDocument(ctx, http.MethodPatch, endpoint, fields)
}

// Update patches the named fields of a document, leaving the rest in place.
// With no explicit field list every key of data is patched.
func (c *Client) Update(ctx context.Context, documentPath string, data map[string]interface{}, fields ...string) (*Document, error) {
	if len(fields) == 0 {
		for name := range data {
			fields = append(fields, name)
		}
	}

	patch := make(map[string]interface{}, len(fields))
	for _, name := range fields {
		value, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("field %s not found in data", name)
		}
		patch[name] = value
	}
	encoded, err := EncodeDocument(patch)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for _, name := range fields {
		query.Add("updateMask.fieldPaths", name)
	}
	endpoint := c.conn.GetConfig().documentsBase() + "/" + documentPath + "?" + query.Encode()
	return c.writeDocument(ctx, http.MethodPatch, endpoint, encoded)
}

// Delete removes a document. Deleting a missing document is not an error on
// the Firestore side.
func (c *Client) Delete(ctx context.Context, documentPath string) error {
	endpoint := c.conn.GetConfig().documentsBase() + "/" + documentPath
	body, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	var response wireDocument
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to parse delete response: %w", err)
	}
	if response.Error != nil {
		c.logRemoteError("delete", response.Error)
		return response.Error
	}
	return nil
}

// RunQuery executes a structured query against one collection. A remote
// error is logged and yields an empty result set rather than an error;
// matching nothing likewise yields an empty result set. Each result carries
// its document ID under DocumentIDKey.
func (c *Client) RunQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error) {
	return c.runQuery(ctx, collectionID, query, false)
}

// RunCollectionGroupQuery is RunQuery across every subcollection named
// collectionID, regardless of parent document.
func (c *Client) RunCollectionGroupQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error) {
	return c.runQuery(ctx, collectionID, query, true)
}

func (c *Client) runQuery(ctx context.Context, collectionID string, query *Query, allDescendants bool) ([]map[string]interface{}, error) {
	request, err := BuildStructuredQuery(collectionID, query, allDescendants)
	if err != nil {
		return nil, err
	}

	endpoint := c.conn.GetConfig().documentsBase() + ":runQuery"
	body, err := c.do(ctx, http.MethodPost, endpoint, request)
	if err != nil {
		return nil, err
	}

	var envelopes []RunQueryResponseItem
	if err := json.Unmarshal(body, &envelopes); err != nil {
		// A failed query comes back as a single error object, not an array.
		var failure struct {
			Error *RemoteError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &failure); jsonErr == nil && failure.Error != nil {
			c.logRemoteError("query", failure.Error)
			return []map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	results, remoteErr := InterpretQueryResponse(envelopes)
	if remoteErr != nil {
		c.logRemoteError("query", remoteErr)
	}
	return results, nil
}

// ListCollectionIDs lists the collections directly under a document, or the
// root collections when documentPath is empty. Pages are followed until
// exhausted.
func (c *Client) ListCollectionIDs(ctx context.Context, documentPath string) ([]string, error) {
	endpoint := c.conn.GetConfig().documentsBase()
	if documentPath != "" {
		endpoint += "/" + documentPath
	}
	endpoint += ":listCollectionIds"

	var ids []string
	pageToken := ""
	for {
		request := map[string]interface{}{"pageSize": 300}
		if pageToken != "" {
			request["pageToken"] = pageToken
		}
		body, err := c.do(ctx, http.MethodPost, endpoint, request)
		if err != nil {
			return nil, err
		}

		var response struct {
			CollectionIDs []string     `json:"collectionIds"`
			NextPageToken string       `json:"nextPageToken"`
			Error         *RemoteError `json:"error"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse listCollectionIds response: %w", err)
		}
		if response.Error != nil {
			c.logRemoteError("listCollectionIds", response.Error)
			return nil, response.Error
		}

		ids = append(ids, response.CollectionIDs...)
		if response.NextPageToken == "" {
			return ids, nil
		}
		pageToken = response.NextPageToken
	}
}

// writeDocument sends a create/set/update request and parses the returned
// document.
func (c *Client) writeDocument(ctx context.Context, method, endpoint string, fields map[string]interface{}) (*Document, error) {
	body, err := c.do(ctx, method, endpoint, map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, err
	}
	return c.parseDocument(body)
}

// parseDocument decodes a document response body. A remote error is logged
// and returned, but the partially parsed document is returned alongside it
// rather than discarded; callers get whatever the service sent back. Note
// the asymmetry with the query path, which collapses remote errors to an
// empty result set.
func (c *Client) parseDocument(body []byte) (*Document, error) {
	var wire wireDocument
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc := wire.toDocument()
	if wire.Error != nil {
		c.logRemoteError("document", wire.Error)
		return doc, wire.Error
	}
	return doc, nil
}

// do performs one authenticated request and returns the raw response body.
// Response bodies are returned for any HTTP status; structured errors inside
// the body are the caller's concern.
func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	token, err := c.conn.GetTokenProvider().Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.conn.GetHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logger := c.conn.GetLogger()
	logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Msg("firestore request")
	return body, nil
}

func (c *Client) logRemoteError(operation string, remoteErr *RemoteError) {
	logger := c.conn.GetLogger()
	logger.Error().
		Str("operation", operation).
		Str("status", remoteErr.Status).
		Int("code", remoteErr.Code).
		Msg(remoteErr.Message)
}
