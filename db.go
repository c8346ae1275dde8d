package firerest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Update names a single field change applied through DB.Update.
type Update struct {
	Path  string
	Value interface{}
}

// IDB defines the interface for model-level database operations.
type IDB interface {
	Model(interface{}) IDB
	WithClient(client IClient) IDB
	CollectionName() (string, error)
	GetByID(ctx context.Context, model interface{}) error
	FindOne(ctx context.Context, queries []Query, dest interface{}) error
	FindAll(ctx context.Context, queries []Query, dest interface{}) error
	Save(ctx context.Context, model interface{}, fieldsToSave ...string) error
	Update(ctx context.Context, model interface{}, updates []Update, where ...[]Query) error
	Delete(ctx context.Context, model interface{}) error
	GetID(model interface{}) string
	GetModelType() reflect.Type
	GetModelValue() reflect.Value
	SetUpdateBatchSize(size int) IDB
	GetUpdateBatchSize() int
	GetClient() IClient
	SetClient(client IClient) IDB
}

type dbOptions struct {
	client          IClient
	modelType       reflect.Type
	modelVal        reflect.Value
	updateBatchSize int
}

// DB holds the Firestore client and state about the current model.
type DB struct {
	options dbOptions
}

// New initializes a new DB instance.
func New(client IClient) IDB {
	return &DB{
		options: dbOptions{
			client:          client,
			modelType:       nil,
			modelVal:        reflect.Value{},
			updateBatchSize: 100,
		},
	}
}

// GetClient returns the Firestore client associated with the DB instance.
func (db *DB) GetClient() IClient {
	return db.options.client
}

// SetClient sets the Firestore client associated with the DB instance.
func (db *DB) SetClient(client IClient) IDB {
	db.options.client = client
	return db
}

// WithClient returns a new DB instance with the specified client.
func (db *DB) WithClient(client IClient) IDB {
	newInstance := &DB{
		options: db.options,
	}
	newInstance.SetClient(client)
	return newInstance
}

// SetUpdateBatchSize sets the page size used by query-based updates.
func (db *DB) SetUpdateBatchSize(size int) IDB {
	newInstance := &DB{
		options: db.options,
	}
	newInstance.options.updateBatchSize = size
	return newInstance
}

// GetUpdateBatchSize returns the page size used by query-based updates.
func (db *DB) GetUpdateBatchSize() int {
	return db.options.updateBatchSize
}

// GetModelType returns the type of the model associated with the DB instance.
func (db *DB) GetModelType() reflect.Type {
	return db.options.modelType
}

// GetModelValue returns the value of the model associated with the DB instance.
func (db *DB) GetModelValue() reflect.Value {
	return db.options.modelVal
}

// Model sets the model type for the DB instance.
// Model should be a struct or a pointer to a struct.
func (db *DB) Model(model interface{}) IDB {
	v := reflect.ValueOf(model)
	t := v.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("model must be a struct or pointer to a struct")
	}

	newInstance := &DB{
		options: db.options,
	}
	newInstance.options.modelType = t
	newInstance.options.modelVal = reflect.New(t)
	return newInstance
}

// CollectionName derives the collection name from the model's type name.
// Customize as needed for your naming conventions.
func (db *DB) CollectionName() (string, error) {
	if db.GetModelType() == nil {
		return "", fmt.Errorf("no model set")
	}

	// Check if the model has a CollectionName() method
	method := db.GetModelValue().MethodByName("CollectionName")
	if method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() == 1 && method.Type().Out(0).Kind() == reflect.String {
		results := method.Call(nil)
		collectionName, ok := results[0].Interface().(string)
		if !ok {
			return "", fmt.Errorf("CollectionName method does not return a string")
		}
		return collectionName, nil
	}

	// Default: use the lowercased type name + "s"
	return strings.ToLower(db.GetModelType().Name()) + "s", nil
}

// GetByID retrieves a single document by ID and stores it in model.
func (db *DB) GetByID(ctx context.Context, model interface{}) error {
	getByIDFunc := func(dbInstance *DB) error {
		if dbInstance.GetModelType() == nil {
			return fmt.Errorf("no model set, call db.Model(&Model{}) first")
		}

		colName, err := dbInstance.CollectionName()
		if err != nil {
			return err
		}

		id := dbInstance.GetID(model)
		if id == "" {
			return fmt.Errorf("ID cannot be empty")
		}

		doc, err := dbInstance.GetClient().Get(ctx, colName+"/"+id)
		if err != nil {
			return err
		}

		if err := MapToStruct(doc.Data, model); err != nil {
			return fmt.Errorf("failed to parse document: %v", err)
		}
		SetIDField(model, doc.ID)
		return nil
	}
	return getByIDFunc(db.Model(model).(*DB))
}

// FindAll retrieves multiple documents based on queries and stores them in dest (which must be a pointer to a slice).
func (db *DB) FindAll(ctx context.Context, queries []Query, dest interface{}) error {
	findAll := func(dbInstance *DB) error {
		if dbInstance.GetModelType() == nil {
			return fmt.Errorf("no model set, call db.Model(&Model{}) first")
		}

		colName, err := dbInstance.CollectionName()
		if err != nil {
			return err
		}

		results, err := dbInstance.GetClient().RunQuery(ctx, colName, mergeQueries(queries))
		if err != nil {
			return err
		}

		rv := reflect.ValueOf(dest)
		if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
			return fmt.Errorf("dest must be a pointer to a slice")
		}

		sliceVal := rv.Elem()
		for _, result := range results {
			newInstance := reflect.New(dbInstance.GetModelType()).Interface()
			if err := MapToStruct(result, newInstance); err != nil {
				return fmt.Errorf("failed to parse document: %v", err)
			}
			if id, ok := result[DocumentIDKey].(string); ok {
				SetIDField(newInstance, id)
			}
			sliceVal = reflect.Append(sliceVal, reflect.ValueOf(newInstance).Elem())
		}
		rv.Elem().Set(sliceVal)
		return nil
	}
	// Dest is a slice of structs, so check what is the destination type
	destType := reflect.TypeOf(dest)
	if destType == nil || destType.Kind() != reflect.Ptr || destType.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to a slice")
	}
	// Check what is the type of one slice element
	elemType := destType.Elem().Elem()
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("dest slice element must be a struct")
	}
	elemTypeInstance := reflect.New(elemType).Interface()
	return findAll(db.Model(elemTypeInstance).(*DB))
}

// FindOne retrieves a single document based on queries and stores it in dest (which must be a pointer to a struct).
func (db *DB) FindOne(ctx context.Context, queries []Query, dest interface{}) error {
	findOne := func(dbInstance *DB) error {
		if dbInstance.GetModelType() == nil {
			return fmt.Errorf("no model set, call db.Model(&Model{}) first")
		}

		colName, err := dbInstance.CollectionName()
		if err != nil {
			return err
		}

		merged := mergeQueries(queries)
		if merged == nil {
			merged = &Query{}
		}
		// Ensure we only get one document
		merged.Limit = 1

		results, err := dbInstance.GetClient().RunQuery(ctx, colName, merged)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no document found")
		}

		if err := MapToStruct(results[0], dest); err != nil {
			return fmt.Errorf("failed to parse document: %v", err)
		}
		if id, ok := results[0][DocumentIDKey].(string); ok {
			SetIDField(dest, id)
		}
		return nil
	}
	return findOne(db.Model(dest).(*DB))
}

// Save inserts or updates a document.
// If the model has no ID set and no fieldsToSave are specified, a new document is created.
// If fieldsToSave are specified but no ID is set, returns an error (can't update without ID).
func (db *DB) Save(ctx context.Context, model interface{}, fieldsToSave ...string) error {
	save := func(dbInstance *DB) error {
		if dbInstance.GetModelType() == nil {
			return fmt.Errorf("no model set, call db.Model(&Model{}) first")
		}

		colName, err := dbInstance.CollectionName()
		if err != nil {
			return err
		}

		id := dbInstance.GetID(model)
		data, err := StructToMap(model)
		if err != nil {
			return err
		}

		// If no ID is specified and no fieldsToSave are provided, create a new document
		if id == "" && len(fieldsToSave) == 0 {
			doc, err := dbInstance.GetClient().Create(ctx, colName, data)
			if err != nil {
				return err
			}
			SetIDField(model, doc.ID)
			return nil
		}

		// If fieldsToSave are given but no ID, we cannot update a non-existing doc
		if len(fieldsToSave) > 0 && id == "" {
			return fmt.Errorf("cannot update fields on a record with no ID")
		}

		if len(fieldsToSave) == 0 {
			// Set or create the entire document
			_, err = dbInstance.GetClient().Set(ctx, colName+"/"+id, data)
			return err
		}

		// Update selected fields only
		_, err = dbInstance.GetClient().Update(ctx, colName+"/"+id, data, fieldsToSave...)
		return err
	}
	return save(db.Model(model).(*DB))
}

// Update updates the document identified by the model's ID with the provided updates.
// Without an ID, documents matching the where queries are updated one page at
// a time; each match gets its own PATCH, since batched writes are out of scope.
func (db *DB) Update(ctx context.Context, model interface{}, updates []Update, where ...[]Query) error {
	update := func(dbInstance *DB) error {
		if dbInstance.GetModelType() == nil {
			return fmt.Errorf("no model set, call db.Model(&Model{}) first")
		}

		colName, err := dbInstance.CollectionName()
		if err != nil {
			return err
		}

		data := make(map[string]interface{}, len(updates))
		fields := make([]string, 0, len(updates))
		for _, u := range updates {
			data[u.Path] = u.Value
			fields = append(fields, u.Path)
		}

		id := dbInstance.GetID(model)
		if id != "" {
			// Direct update by ID
			_, err = dbInstance.GetClient().Update(ctx, colName+"/"+id, data, fields...)
			return err
		}

		// Update by query if no ID is provided
		if len(where) == 0 || len(where[0]) == 0 {
			return fmt.Errorf("either ID or query conditions must be provided")
		}

		// Collect every matching ID before the first patch. Patching while
		// paging would shift the offsets whenever an update makes a
		// document stop matching the filter, skipping later matches.
		merged := mergeQueries(where[0])
		var docIDs []string
		offset := 0

		for {
			page := *merged
			page.Limit = dbInstance.GetUpdateBatchSize()
			page.Offset = offset

			results, err := dbInstance.GetClient().RunQuery(ctx, colName, &page)
			if err != nil {
				return fmt.Errorf("failed to retrieve documents: %v", err)
			}
			if len(results) == 0 {
				break
			}

			for _, result := range results {
				docID, ok := result[DocumentIDKey].(string)
				if !ok || docID == "" {
					return fmt.Errorf("query result is missing a document ID")
				}
				docIDs = append(docIDs, docID)
			}

			offset += len(results)
		}

		for _, docID := range docIDs {
			if _, err := dbInstance.GetClient().Update(ctx, colName+"/"+docID, data, fields...); err != nil {
				return fmt.Errorf("failed to update document %s: %v", docID, err)
			}
		}

		return nil
	}
	return update(db.Model(model).(*DB))
}

// Delete removes the document identified by the model's ID from Firestore.
func (db *DB) Delete(ctx context.Context, model interface{}) error {
	if db.GetModelType() == nil {
		return fmt.Errorf("no model set, call db.Model(&Model{}) first")
	}

	colName, err := db.CollectionName()
	if err != nil {
		return err
	}

	id := db.GetID(model)
	if id == "" {
		return fmt.Errorf("ID cannot be empty for delete")
	}

	return db.GetClient().Delete(ctx, colName+"/"+id)
}

// mergeQueries folds a list of query specs into one, concatenating where and
// order clauses; the last non-zero limit and offset win.
func mergeQueries(queries []Query) *Query {
	if len(queries) == 0 {
		return nil
	}
	merged := &Query{}
	for _, q := range queries {
		merged.Where = append(merged.Where, q.Where...)
		merged.OrderBy = append(merged.OrderBy, q.OrderBy...)
		if q.Limit != 0 {
			merged.Limit = q.Limit
		}
		if q.Offset != 0 {
			merged.Offset = q.Offset
		}
	}
	return merged
}

// GetID retrieves the "ID" field value if it exists and is a string.
func (db *DB) GetID(model interface{}) string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	field := v.FieldByName("ID")
	if field.IsValid() && field.Kind() == reflect.String {
		return field.String()
	}
	return ""
}
