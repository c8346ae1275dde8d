package firerest

const (
	QueryLimitMax       = 10_000
	QueryLimitUnlimited = -1
)

// Comparison operators accepted by WhereClause. These are the wire-level
// names and are case-sensitive; the builder passes them through without
// validating that the comparison value's shape fits the operator (a
// mismatch, e.g. a scalar paired with OpIn, is rejected by the service).
const (
	OpLessThan           = "LESS_THAN"
	OpLessThanOrEqual    = "LESS_THAN_OR_EQUAL"
	OpGreaterThan        = "GREATER_THAN"
	OpGreaterThanOrEqual = "GREATER_THAN_OR_EQUAL"
	OpEqual              = "EQUAL"
	OpNotEqual           = "NOT_EQUAL"
	OpArrayContains      = "ARRAY_CONTAINS"
	OpIn                 = "IN"
	OpArrayContainsAny   = "ARRAY_CONTAINS_ANY"
	OpNotIn              = "NOT_IN"
	OpIsNaN              = "IS_NAN"
	OpIsNull             = "IS_NULL"
	OpIsNotNaN           = "IS_NOT_NAN"
	OpIsNotNull          = "IS_NOT_NULL"
)

// Sort directions for OrderClause.
const (
	DirectionAscending  = "ASCENDING"
	DirectionDescending = "DESCENDING"
)

// Query defines the structure of a Firestore query. Multiple where clauses
// always combine with AND semantics; the REST API's OR composition is not
// exposed here.
type Query struct {
	Where   []WhereClause
	OrderBy []OrderClause
	Limit   int
	Offset  int
}

// WhereClause defines a single where condition. Field is a dot-separated
// path for nested fields, e.g. "address.city".
type WhereClause struct {
	Field    string
	Operator string
	Value    interface{}
}

// OrderClause defines a single order by condition. Direction defaults to
// ascending when empty.
type OrderClause struct {
	Field     string
	Direction string
}

// BuildStructuredQuery assembles the :runQuery request body for a collection
// and an optional query spec. It performs no I/O. With allDescendants set
// the query runs as a collection-group query across all same-named
// subcollections.
//
// Filter values are encoded with Encode; an unencodable value aborts the
// build before any request is made.
func BuildStructuredQuery(collectionID string, query *Query, allDescendants bool) (*RunQueryRequest, error) {
	sq := &StructuredQuery{
		From: []CollectionSelector{{
			CollectionID:   collectionID,
			AllDescendants: allDescendants,
		}},
	}

	if query != nil {
		if len(query.Where) > 0 {
			filters := make([]Filter, 0, len(query.Where))
			for _, w := range query.Where {
				value, err := Encode(w.Value)
				if err != nil {
					return nil, err
				}
				filters = append(filters, Filter{
					FieldFilter: &FieldFilter{
						Field: FieldReference{FieldPath: w.Field},
						Op:    w.Operator,
						Value: value,
					},
				})
			}
			sq.Where = &Filter{
				CompositeFilter: &CompositeFilter{
					Op:      "AND",
					Filters: filters,
				},
			}
		}

		for _, o := range query.OrderBy {
			direction := o.Direction
			if direction == "" {
				direction = DirectionAscending
			}
			sq.OrderBy = append(sq.OrderBy, Order{
				Field:     FieldReference{FieldPath: o.Field},
				Direction: direction,
			})
		}

		if query.Limit > 0 && query.Limit != QueryLimitUnlimited {
			sq.Limit = query.Limit
		}
		if query.Offset > 0 {
			sq.Offset = query.Offset
		}
	}

	return &RunQueryRequest{StructuredQuery: sq}, nil
}

// InterpretQueryResponse turns the :runQuery response envelopes into decoded
// native objects, each carrying its document ID under DocumentIDKey.
// Envelopes with no document (read-timestamp markers) are skipped, so a
// query matching nothing yields an empty slice.
//
// An error envelope short-circuits interpretation: the returned slice is
// empty and the remote error is handed back for the caller to report. No
// partial results are returned alongside an error.
func InterpretQueryResponse(envelopes []RunQueryResponseItem) ([]map[string]interface{}, *RemoteError) {
	results := []map[string]interface{}{}
	for _, envelope := range envelopes {
		if envelope.Error != nil {
			return []map[string]interface{}{}, envelope.Error
		}
		if envelope.Document == nil {
			continue
		}
		if envelope.Document.Error != nil {
			return []map[string]interface{}{}, envelope.Document.Error
		}
		object := DecodeDocument(envelope.Document.Fields)
		object[DocumentIDKey] = lastPathSegment(envelope.Document.Name)
		results = append(results, object)
	}
	return results, nil
}
