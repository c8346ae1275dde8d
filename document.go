package firerest

import "strings"

// DocumentIDKey is the reserved field name under which query results carry
// the document ID. Double-underscore names are reserved by Firestore and can
// never collide with user fields.
const DocumentIDKey = "__id__"

// Document is a Firestore document with its fields decoded to native values.
type Document struct {
	ID         string
	Path       string
	Data       map[string]interface{}
	CreateTime string
	UpdateTime string
}

// wireDocument is the REST representation of a document.
type wireDocument struct {
	Name       string                 `json:"name,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	CreateTime string                 `json:"createTime,omitempty"`
	UpdateTime string                 `json:"updateTime,omitempty"`
	Error      *RemoteError           `json:"error,omitempty"`
}

func (w *wireDocument) toDocument() *Document {
	return &Document{
		ID:         lastPathSegment(w.Name),
		Path:       documentPath(w.Name),
		Data:       DecodeDocument(w.Fields),
		CreateTime: w.CreateTime,
		UpdateTime: w.UpdateTime,
	}
}

// lastPathSegment extracts the document ID from a fully qualified name like
// projects/p/databases/d/documents/users/alice.
func lastPathSegment(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}

// documentPath returns the path relative to the documents root, e.g.
// "users/alice" for the name above.
func documentPath(name string) string {
	const marker = "/documents/"
	if i := strings.Index(name, marker); i >= 0 {
		return name[i+len(marker):]
	}
	return name
}

// RunQueryRequest is the body of a :runQuery call.
type RunQueryRequest struct {
	StructuredQuery *StructuredQuery `json:"structuredQuery"`
}

// StructuredQuery mirrors the REST structuredQuery shape.
type StructuredQuery struct {
	From    []CollectionSelector `json:"from,omitempty"`
	Where   *Filter              `json:"where,omitempty"`
	OrderBy []Order              `json:"orderBy,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

type CollectionSelector struct {
	CollectionID   string `json:"collectionId"`
	AllDescendants bool   `json:"allDescendants,omitempty"`
}

// Filter holds exactly one of a composite or a field filter.
type Filter struct {
	CompositeFilter *CompositeFilter `json:"compositeFilter,omitempty"`
	FieldFilter     *FieldFilter     `json:"fieldFilter,omitempty"`
}

type CompositeFilter struct {
	Op      string   `json:"op"`
	Filters []Filter `json:"filters"`
}

type FieldFilter struct {
	Field FieldReference `json:"field"`
	Op    string         `json:"op"`
	Value interface{}    `json:"value"`
}

type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type Order struct {
	Field     FieldReference `json:"field"`
	Direction string         `json:"direction,omitempty"`
}

// RunQueryResponseItem is one envelope of a :runQuery response. Envelopes
// with no document carry only a read timestamp.
type RunQueryResponseItem struct {
	Document *wireDocument `json:"document,omitempty"`
	ReadTime string        `json:"readTime,omitempty"`
	Error    *RemoteError  `json:"error,omitempty"`
}
