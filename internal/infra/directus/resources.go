package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"content-mesh/internal/common/pagination"
	"content-mesh/internal/domain/entity"
	"content-mesh/internal/domain/mesh"
	"content-mesh/internal/resilience/retry"
)

// Collections lists the collection declarations. The endpoint is not
// paginated, so the response always describes a single page.
func (c *Client) Collections(ctx context.Context, params pagination.Params) (pagination.Response[entity.Collection], error) {
	return listAll[entity.Collection](ctx, c, "collections", "/collections", params)
}

// Fields lists the field declarations of every collection.
func (c *Client) Fields(ctx context.Context, params pagination.Params) (pagination.Response[entity.Field], error) {
	return listAll[entity.Field](ctx, c, "fields", "/fields", params)
}

// Relations lists the raw relation declarations.
func (c *Client) Relations(ctx context.Context, params pagination.Params) (pagination.Response[entity.RawRelation], error) {
	return listAll[entity.RawRelation](ctx, c, "relations", "/relations", params)
}

// Files fetches one page of file records.
func (c *Client) Files(ctx context.Context, params pagination.Params) (pagination.Response[mesh.Record], error) {
	return page[mesh.Record](ctx, c, "files", "/files", params)
}

// Items fetches one page of records of collection.
func (c *Client) Items(ctx context.Context, collection string, params pagination.Params) (pagination.Response[mesh.Record], error) {
	return page[mesh.Record](ctx, c, "items", "/items/"+url.PathEscape(collection), params)
}

// Singleton fetches the single record of a singleton collection. The API
// returns an object instead of a list; a null object yields no records.
func (c *Client) Singleton(ctx context.Context, collection string, _ pagination.Params) (pagination.Response[mesh.Record], error) {
	env, err := c.send(ctx, request{
		endpoint: "items",
		method:   http.MethodGet,
		path:     "/items/" + url.PathEscape(collection),
	})
	if err != nil {
		return reported[mesh.Record]("items", err)
	}
	if len(env.Errors) > 0 {
		return pagination.ErrorResponse[mesh.Record](&APIError{Endpoint: "items", Errors: env.Errors}), nil
	}

	records := []mesh.Record{}
	if !isNull(env.Data) {
		var rec mesh.Record
		if err := decodeData(env.Data, &rec); err != nil {
			return pagination.Response[mesh.Record]{}, fmt.Errorf("%w from items: %v", ErrDecode, err)
		}
		records = append(records, rec)
	}
	return pagination.NewResponse(records, pagination.NewMetadata(len(records), 1, 1)), nil
}

// page requests one page and derives the page count from meta.filter_count.
// A response without filter_count keeps its metadata incomplete, which the
// caller treats as malformed.
func page[T any](ctx context.Context, c *Client, endpoint, path string, params pagination.Params) (pagination.Response[T], error) {
	env, err := c.send(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
		query:    params.Query(),
	})
	if err != nil {
		return reported[T](endpoint, err)
	}
	if len(env.Errors) > 0 {
		return pagination.ErrorResponse[T](&APIError{Endpoint: endpoint, Errors: env.Errors}), nil
	}

	data := []T{}
	if !isNull(env.Data) {
		if err := decodeData(env.Data, &data); err != nil {
			return pagination.Response[T]{}, fmt.Errorf("%w from %s: %v", ErrDecode, endpoint, err)
		}
	}

	if env.Meta == nil || env.Meta.FilterCount == nil {
		count := len(data)
		return pagination.NewResponse(data, pagination.Metadata{ResultCount: &count}), nil
	}
	total := pagination.CalculateTotalPages(*env.Meta.FilterCount, params.Limit)
	return pagination.NewResponse(data, pagination.NewMetadata(len(data), params.Page, total)), nil
}

// listAll requests an unpaginated system endpoint and synthesises
// single-page metadata.
func listAll[T any](ctx context.Context, c *Client, endpoint, path string, params pagination.Params) (pagination.Response[T], error) {
	if params.Page > 1 {
		return pagination.NewResponse([]T{}, pagination.NewMetadata(0, params.Page, 1)), nil
	}

	env, err := c.send(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
	})
	if err != nil {
		return reported[T](endpoint, err)
	}
	if len(env.Errors) > 0 {
		return pagination.ErrorResponse[T](&APIError{Endpoint: endpoint, Errors: env.Errors}), nil
	}

	data := []T{}
	if !isNull(env.Data) {
		if err := decodeData(env.Data, &data); err != nil {
			return pagination.Response[T]{}, fmt.Errorf("%w from %s: %v", ErrDecode, endpoint, err)
		}
	}
	return pagination.NewResponse(data, pagination.NewMetadata(len(data), 1, 1)), nil
}

// reported turns an HTTP error status into an API-reported error; anything
// else is returned as a transport failure.
func reported[T any](endpoint string, err error) (pagination.Response[T], error) {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return pagination.ErrorResponse[T](fmt.Errorf("%s: %w", endpoint, err)), nil
	}
	return pagination.Response[T]{}, err
}

// decodeData keeps JSON numbers as json.Number so large keys survive.
func decodeData(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
